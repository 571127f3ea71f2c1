package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"

	MQBackendNone     = ""
	MQBackendRabbitMQ = "rabbitmq"
	MQBackendPubSub   = "pubsub"
)

type Config struct {
	Env        string        `env:"ENV, default=production"`
	ServerPort int           `env:"SERVER_PORT, default=8080"`
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL, default=48h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`

	Log      LogConfig
	Database DatabaseConfig
	Storage  StorageConfig
	MQ       MQConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=storefront"`
	Password string `env:"DB_PASSWORD, default=password"`
	DBName   string `env:"DB_NAME, default=storefront"`
	UseSSL   bool   `env:"DB_USE_SSL, default=false"`
}

// StorageConfig selects the object storage backend holding product images.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND, default=minio"`

	// PublicURL overrides the base URL images are served from. When empty it
	// is derived from the backend as https://<bucket>.<provider-domain>.
	PublicURL string `env:"STORAGE_PUBLIC_URL"`

	Minio MinioConfig
	GCS   GCSConfig
}

// MinioConfig addresses any S3-compatible endpoint, AWS S3 included.
type MinioConfig struct {
	Endpoint  string `env:"S3_ENDPOINT, default=s3.amazonaws.com"`
	Region    string `env:"S3_REGION"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Bucket    string `env:"S3_BUCKET"`
	UseSSL    bool   `env:"S3_USE_SSL, default=true"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// MQConfig configures where orphaned object reports are published.
// An empty Backend disables publishing; reports are then only logged.
type MQConfig struct {
	Backend       string `env:"MQ_BACKEND"`
	OrphanChannel string `env:"MQ_ORPHAN_CHANNEL, default=orphaned-objects"`

	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE, default=true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE, default=false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT, default=10"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX, default=-sub"`
}

func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Bucket returns the bucket name of the selected storage backend.
func (c StorageConfig) Bucket() string {
	if c.Backend == StorageBackendGCS {
		return c.GCS.Bucket
	}
	return c.Minio.Bucket
}
