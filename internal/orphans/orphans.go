// Package orphans tracks blob store objects that no product references any
// more. The Reporter announces them on a queue and the Sweeper consumes those
// announcements and retries the deletion.
package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/storefront/apiserver/internal/metrics"
	"github.com/storefront/apiserver/internal/mq"
)

const (
	// ReasonDeleteFailed marks an object whose deletion failed while its
	// product was being removed.
	ReasonDeleteFailed = "delete_failed"
	// ReasonBatchAborted marks an upload whose sibling in the same request
	// failed, so the batch was never persisted.
	ReasonBatchAborted = "batch_aborted"
	// ReasonPersistFailed marks an upload whose product write failed.
	ReasonPersistFailed = "persist_failed"
)

const publishTimeout = 5 * time.Second

// Event is the payload published for each orphaned object.
type Event struct {
	URL        string    `json:"url"`
	ProductID  int       `json:"product_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// Reporter logs orphaned objects and, when a queue is configured, publishes
// one Event per object.
type Reporter struct {
	log     zerolog.Logger
	queue   *mq.MQ
	channel string
	now     func() time.Time
}

// NewReporter constructs a Reporter. queue may be nil, in which case reports
// are only logged.
func NewReporter(log zerolog.Logger, queue *mq.MQ, channel string) *Reporter {
	return &Reporter{
		log:     log.With().Str("component", "orphans").Logger(),
		queue:   queue,
		channel: channel,
		now:     time.Now,
	}
}

// Report records urls as orphaned. Publishing uses a context detached from
// ctx's cancellation so a finished request does not drop the report.
func (r *Reporter) Report(ctx context.Context, productID int, urls []string, reason string) {
	for _, url := range urls {
		if strings.TrimSpace(url) == "" {
			continue
		}
		metrics.OrphansReportedTotal.WithLabelValues(reason).Inc()

		event := Event{
			URL:        url,
			ProductID:  productID,
			Reason:     reason,
			ReportedAt: r.now().UTC(),
		}
		r.log.Warn().
			Str("url", url).
			Int("product_id", productID).
			Str("reason", reason).
			Msg("orphaned object")

		if r.queue == nil {
			continue
		}
		if err := r.publish(ctx, event); err != nil {
			r.log.Error().Err(err).Str("url", url).Msg("failed to publish orphan event")
		}
	}
}

func (r *Reporter) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	_, err = r.queue.Publish(ctx, r.channel, data, map[string]string{
		mq.AttrContentType: "application/json",
		"reason":           event.Reason,
	})
	return err
}

// Deleter removes an object by its public URL.
type Deleter interface {
	DeleteByURL(ctx context.Context, url string) error
}

// Sweeper deletes the objects announced by a Reporter.
type Sweeper struct {
	log     zerolog.Logger
	deleter Deleter
}

func NewSweeper(log zerolog.Logger, deleter Deleter) *Sweeper {
	return &Sweeper{
		log:     log.With().Str("component", "orphans").Logger(),
		deleter: deleter,
	}
}

var errMissingURL = errors.New("orphan event has no url")

// Handle processes one orphan event. Malformed events are dropped; a failed
// deletion is returned so the broker redelivers the event.
func (s *Sweeper) Handle(ctx context.Context, msg mq.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		metrics.OrphansSweptTotal.WithLabelValues(metrics.ResultError).Inc()
		s.log.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed orphan event")
		return mq.Permanent(fmt.Errorf("decode orphan event: %w", err))
	}
	if strings.TrimSpace(event.URL) == "" {
		metrics.OrphansSweptTotal.WithLabelValues(metrics.ResultError).Inc()
		s.log.Error().Str("message_id", msg.ID).Msg("dropping orphan event without url")
		return mq.Permanent(errMissingURL)
	}

	if err := s.deleter.DeleteByURL(ctx, event.URL); err != nil {
		metrics.OrphansSweptTotal.WithLabelValues(metrics.ResultError).Inc()
		s.log.Warn().Err(err).Str("url", event.URL).Msg("orphan deletion failed, will retry")
		return err
	}

	metrics.OrphansSweptTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().
		Str("url", event.URL).
		Int("product_id", event.ProductID).
		Str("reason", event.Reason).
		Msg("orphaned object deleted")
	return nil
}

// Run consumes orphan events from channel until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, queue *mq.MQ, channel string) error {
	s.log.Info().Str("channel", channel).Msg("orphan sweeper started")
	err := queue.Subscribe(ctx, channel, s.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
