package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/storefront/apiserver/config"
	"github.com/storefront/apiserver/internal/metrics"
)

const uploadPrefix = "uploads/"

// ObjectStorage defines common object operations across backends.
// Objects written with Put are publicly readable.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
	// PublicBaseURL is the provider's default base URL for public objects,
	// in the form https://<bucket>.<provider-domain>.
	PublicBaseURL() string
}

// BlobStore uploads product images and deletes them by their public URL.
// It holds no mutable state and is safe for concurrent use.
type BlobStore struct {
	backend ObjectStorage
	baseURL *url.URL
	now     func() time.Time
}

// NewBlobStore wraps backend. publicURL overrides the backend's default base
// URL, e.g. for a CDN or a path-style MinIO endpoint.
func NewBlobStore(backend ObjectStorage, publicURL string) (*BlobStore, error) {
	raw := strings.TrimSpace(publicURL)
	if raw == "" {
		raw = backend.PublicBaseURL()
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid public url %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid public url %q: scheme and host are required", raw)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &BlobStore{
		backend: backend,
		baseURL: base,
		now:     time.Now,
	}, nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *BlobStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Bucket returns the configured bucket name.
func (s *BlobStore) Bucket() string {
	return s.backend.Bucket()
}

// Upload stores data under uploads/<unix-nanos>-<originalName> and returns
// the object's public URL.
func (s *BlobStore) Upload(ctx context.Context, data []byte, contentType, originalName string) (string, error) {
	key := uploadPrefix + strconv.FormatInt(s.now().UnixNano(), 10) + "-" + sanitizeFilename(originalName)

	start := time.Now()
	err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	metrics.BlobUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BlobUploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.BlobUploadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	return s.URLForKey(key), nil
}

// DeleteByURL removes the object addressed by rawURL. URLs that do not point
// into this store's bucket, or that cannot be parsed, are ignored.
func (s *BlobStore) DeleteByURL(ctx context.Context, rawURL string) error {
	key, ok := s.KeyFromURL(rawURL)
	if !ok {
		metrics.BlobDeletesTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}

	if err := s.backend.Delete(ctx, key); err != nil {
		metrics.BlobDeletesTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	metrics.BlobDeletesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}

// URLForKey returns the public URL of key.
func (s *BlobStore) URLForKey(key string) string {
	u := *s.baseURL
	u.Path = s.baseURL.Path + "/" + key
	return u.String()
}

// KeyFromURL extracts the object key from a public URL produced by URLForKey.
func (s *BlobStore) KeyFromURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Host, s.baseURL.Host) {
		return "", false
	}

	key, found := strings.CutPrefix(u.Path, s.baseURL.Path+"/")
	if !found || key == "" {
		return "", false
	}
	return key, true
}

func sanitizeFilename(name string) string {
	name = strings.ToValidUTF8(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"), "_")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "file"
	}
	return base
}

var errBucketRequired = errors.New("bucket is required")

// New builds the BlobStore for the backend selected in cfg.
func New(ctx context.Context, cfg config.StorageConfig) (*BlobStore, error) {
	var backend ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.StorageBackendMinio, "s3", "":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	return NewBlobStore(backend, cfg.PublicURL)
}

// Close releases backend resources, if the backend holds any.
func (s *BlobStore) Close() error {
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
