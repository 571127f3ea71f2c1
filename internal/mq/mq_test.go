package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/storefront/apiserver/config"
)

func TestPermanent(t *testing.T) {
	base := errors.New("malformed event")

	if Permanent(nil) != nil {
		t.Fatal("expected Permanent(nil) to be nil")
	}
	if IsPermanent(base) {
		t.Fatal("plain error must not be permanent")
	}

	wrapped := fmt.Errorf("handle: %w", Permanent(base))
	if !IsPermanent(wrapped) {
		t.Fatal("expected wrapped permanent error to be detected")
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("expected permanent error to unwrap to its cause")
	}
}

func TestOpenWithoutBackend(t *testing.T) {
	q, err := Open(context.Background(), config.MQConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if q != nil {
		t.Fatal("expected nil MQ when no backend is configured")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.MQConfig{Backend: "kafka"}); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestOpenRabbitMQRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: config.MQBackendRabbitMQ})
	if err == nil {
		t.Fatal("expected error when rabbitmq url is missing")
	}
}

func TestHeadersToAttributes(t *testing.T) {
	if headersToAttributes(nil) != nil {
		t.Fatal("expected nil attributes for empty headers")
	}
	attrs := headersToAttributes(map[string]any{
		"reason": "delete_failed",
		"raw":    []byte("bytes"),
		"count":  3,
	})
	if attrs["reason"] != "delete_failed" || attrs["raw"] != "bytes" || attrs["count"] != "3" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}
