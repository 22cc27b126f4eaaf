package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// MemoryStore keeps objects in process, keyed by bucket and key.
type MemoryStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	puts    int
	failPut error
}

var _ ports.ArtifactStore = (*MemoryStore)(nil)

// NewMemoryStore uses bucket as the artifact destination.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: map[string][]byte{}}
}

// Seed stores a batch object for later Open calls.
func (m *MemoryStore) Seed(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName(bucket, key)] = append([]byte(nil), body...)
}

// FailPuts makes every subsequent Put return err; nil restores normal behavior.
func (m *MemoryStore) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = err
}

// Open returns a reader over a seeded object.
func (m *MemoryStore) Open(ctx context.Context, loc domain.BatchLocator) (io.ReadCloser, error) {
	bucket := loc.Bucket
	if bucket == "" {
		bucket = m.bucket
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.objects[objectName(bucket, loc.Key)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", loc, ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// Put stores body under key in the artifact bucket.
func (m *MemoryStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPut != nil {
		return m.failPut
	}
	m.objects[objectName(m.bucket, key)] = append([]byte(nil), body...)
	m.puts++
	return nil
}

// Exists reports whether key was written to the artifact bucket.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectName(m.bucket, key)]
	return ok, nil
}

// Get returns the artifact body at key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[objectName(m.bucket, key)]
	return body, ok
}

// Puts counts successful Put calls.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func objectName(bucket, key string) string {
	return bucket + "/" + key
}
