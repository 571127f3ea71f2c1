package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/storefront/apiserver/internal/mq"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeBackend struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	inbox      []mq.Message
	results    []error
}

func (f *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for _, msg := range f.inbox {
		f.results = append(f.results, handler(ctx, msg))
	}
	return context.Canceled
}

func (f *fakeBackend) Close() error { return nil }

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteByURL(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return f.err
}

func TestReporter_PublishesOneEventPerURL(t *testing.T) {
	backend := &fakeBackend{}
	reporter := NewReporter(zerolog.Nop(), mq.New(backend), "orphaned-objects")
	reportedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reporter.now = func() time.Time { return reportedAt }

	reporter.Report(context.Background(), 7, []string{"https://b/1.png", "", "https://b/2.png"}, ReasonDeleteFailed)

	if len(backend.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(backend.published))
	}
	for i, want := range []string{"https://b/1.png", "https://b/2.png"} {
		msg := backend.published[i]
		if msg.channel != "orphaned-objects" {
			t.Fatalf("unexpected channel %q", msg.channel)
		}
		if msg.attrs[mq.AttrContentType] != "application/json" {
			t.Fatalf("unexpected attributes %v", msg.attrs)
		}
		var event Event
		if err := json.Unmarshal(msg.data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.URL != want || event.ProductID != 7 || event.Reason != ReasonDeleteFailed || !event.ReportedAt.Equal(reportedAt) {
			t.Fatalf("unexpected event: %+v", event)
		}
	}
}

func TestReporter_WithoutQueueOnlyLogs(t *testing.T) {
	reporter := NewReporter(zerolog.Nop(), nil, "orphaned-objects")
	reporter.Report(context.Background(), 1, []string{"https://b/1.png"}, ReasonBatchAborted)
}

func TestReporter_PublishErrorIsSwallowed(t *testing.T) {
	backend := &fakeBackend{publishErr: errors.New("broker down")}
	reporter := NewReporter(zerolog.Nop(), mq.New(backend), "orphaned-objects")
	reporter.Report(context.Background(), 1, []string{"https://b/1.png"}, ReasonPersistFailed)
}

func TestReporter_PublishesAfterRequestCancelled(t *testing.T) {
	backend := &fakeBackend{}
	reporter := NewReporter(zerolog.Nop(), mq.New(backend), "orphaned-objects")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reporter.Report(ctx, 1, []string{"https://b/1.png"}, ReasonDeleteFailed)

	if len(backend.published) != 1 {
		t.Fatalf("expected event to be published, got %d", len(backend.published))
	}
}

func encodeEvent(t *testing.T, event Event) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestSweeper_Handle(t *testing.T) {
	deleter := &fakeDeleter{}
	sweeper := NewSweeper(zerolog.Nop(), deleter)

	msg := mq.Message{ID: "1", Data: encodeEvent(t, Event{URL: "https://b/1.png", ProductID: 3, Reason: ReasonDeleteFailed})}
	if err := sweeper.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "https://b/1.png" {
		t.Fatalf("unexpected deletes: %v", deleter.deleted)
	}
}

func TestSweeper_HandleRetriesOnDeleteFailure(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("timeout")}
	sweeper := NewSweeper(zerolog.Nop(), deleter)

	msg := mq.Message{ID: "1", Data: encodeEvent(t, Event{URL: "https://b/1.png"})}
	err := sweeper.Handle(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error")
	}
	if mq.IsPermanent(err) {
		t.Fatal("delete failure must be retried")
	}
}

func TestSweeper_HandleDropsMalformedEvents(t *testing.T) {
	deleter := &fakeDeleter{}
	sweeper := NewSweeper(zerolog.Nop(), deleter)

	for _, data := range [][]byte{[]byte("{"), []byte(`{"url":""}`)} {
		err := sweeper.Handle(context.Background(), mq.Message{ID: "1", Data: data})
		if !mq.IsPermanent(err) {
			t.Fatalf("expected permanent error for %s, got %v", data, err)
		}
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("expected no deletes, got %v", deleter.deleted)
	}
}

func TestSweeper_Run(t *testing.T) {
	backend := &fakeBackend{inbox: []mq.Message{
		{ID: "1", Data: encodeEvent(t, Event{URL: "https://b/1.png"})},
		{ID: "2", Data: encodeEvent(t, Event{URL: "https://b/2.png"})},
	}}
	deleter := &fakeDeleter{}
	sweeper := NewSweeper(zerolog.Nop(), deleter)

	if err := sweeper.Run(context.Background(), mq.New(backend), "orphaned-objects"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(deleter.deleted) != 2 {
		t.Fatalf("expected 2 deletes, got %v", deleter.deleted)
	}
}
