package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// ErrObjectNotFound is returned when a batch object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// GCSStore reads batch files from and writes artifacts to Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

var _ ports.ArtifactStore = (*GCSStore)(nil)

// NewGCSClient builds a storage client, honoring an emulator host when configured.
func NewGCSClient(ctx context.Context, cfg config.ArtifactsConfig) (*storage.Client, error) {
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return storage.NewClient(ctx, opts...)
}

// NewGCSStore writes artifacts into bucket; batch reads use the locator's bucket.
func NewGCSStore(client *storage.Client, bucket string, logger *zap.Logger) *GCSStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GCSStore{client: client, bucket: bucket, logger: logger}
}

// Open streams a batch object.
func (s *GCSStore) Open(ctx context.Context, loc domain.BatchLocator) (io.ReadCloser, error) {
	bucket := loc.Bucket
	if bucket == "" {
		bucket = s.bucket
	}

	r, err := s.client.Bucket(bucket).Object(loc.Key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("open %s: %w", loc, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	return r, nil
}

// Put overwrites the object at key.
func (s *GCSStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Debug("object written", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

// Exists reports whether key is present in the artifact bucket.
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat gs://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}
