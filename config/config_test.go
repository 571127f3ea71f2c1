package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.TokenTTL != 48*time.Hour {
		t.Fatalf("expected default ttl 48h, got %s", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("expected default bcrypt cost 10, got %d", cfg.BcryptCost)
	}
	if cfg.Storage.Backend != StorageBackendMinio || cfg.Storage.Minio.Endpoint != "s3.amazonaws.com" || !cfg.Storage.Minio.UseSSL {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.MQ.Backend != MQBackendNone || cfg.MQ.OrphanChannel != "orphaned-objects" {
		t.Fatalf("unexpected mq defaults: %+v", cfg.MQ)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "catalog-images")
	t.Setenv("S3_BUCKET", "unused")
	t.Setenv("MQ_BACKEND", "rabbitmq")
	t.Setenv("RABBITMQ_PREFETCH_COUNT", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ServerPort != 9090 || cfg.TokenTTL != time.Hour {
		t.Fatalf("unexpected overrides: port=%d ttl=%s", cfg.ServerPort, cfg.TokenTTL)
	}
	if got := cfg.Storage.Bucket(); got != "catalog-images" {
		t.Fatalf("expected gcs bucket, got %q", got)
	}
	if cfg.MQ.Backend != MQBackendRabbitMQ || cfg.MQ.RabbitMQ.PrefetchCount != 3 {
		t.Fatalf("unexpected mq config: %+v", cfg.MQ)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "not-a-port")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
