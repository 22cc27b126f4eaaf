package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/infrastructure/objectstore"
	"ReviewMind/internal/infrastructure/storage"
	"ReviewMind/internal/workerpool"
)

const testBucket = "reviews-test"

type stubClassifier struct {
	mu      sync.Mutex
	results map[string]domain.Sentiment
	fail    map[string]error
	calls   atomic.Int32
}

func newStubClassifier() *stubClassifier {
	return &stubClassifier{results: map[string]domain.Sentiment{}, fail: map[string]error{}}
}

func (s *stubClassifier) on(text, label string, p, n, u, m float64) *stubClassifier {
	sentiment, err := domain.NewSentiment(label, p, n, u, m)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[text] = sentiment
	return s
}

func (s *stubClassifier) failOn(text string, err error) *stubClassifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[text] = err
	return s
}

func (s *stubClassifier) Classify(_ context.Context, text string) (domain.Sentiment, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[text]; ok {
		return domain.Sentiment{}, err
	}
	if res, ok := s.results[text]; ok {
		return res, nil
	}
	return domain.NewSentiment("NEUTRAL", 0, 0, 1, 0)
}

// failingRepository rejects upserts for selected ids.
type failingRepository struct {
	*storage.MemoryRepository
	failIDs map[string]bool
}

func (r failingRepository) Upsert(ctx context.Context, record domain.ReviewRecord) (domain.ReviewRecord, bool, error) {
	if r.failIDs[record.ID] {
		return domain.ReviewRecord{}, false, errors.New("connection reset")
	}
	return r.MemoryRepository.Upsert(ctx, record)
}

type fixture struct {
	repo       *storage.MemoryRepository
	store      *objectstore.MemoryStore
	classifier *stubClassifier
	pool       *workerpool.Pool
	enricher   *Enricher
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pool, err := workerpool.New("test", 4, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Release(0) })

	f := &fixture{
		repo:       storage.NewMemoryRepository(),
		store:      objectstore.NewMemoryStore(testBucket),
		classifier: newStubClassifier(),
		pool:       pool,
	}
	f.enricher = NewEnricher(EnricherDeps{
		Repository: f.repo,
		Store:      f.store,
		Classifier: f.classifier,
	})
	f.dispatcher = NewDispatcher(f.enricher, pool, nil)
	return f
}

func (f *fixture) seedPending(t *testing.T, id, text string) domain.ChangeEvent {
	t.Helper()
	rec := domain.NewPendingRecord(id, "app", text, "5")
	_, _, err := f.repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	img := rec.Image()
	return domain.ChangeEvent{ID: "ev-" + id, Kind: domain.EventInsert, NewImage: &img}
}
