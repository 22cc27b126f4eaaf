package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewMind/internal/domain"
)

func mustSentiment(t *testing.T) domain.Sentiment {
	t.Helper()
	s, err := domain.NewSentiment("POSITIVE", 0.9, 0.02, 0.05, 0.03)
	require.NoError(t, err)
	return s
}

func TestMemoryRepositoryUpsertKeepsCompletedStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	stored, inserted, err := repo.Upsert(ctx, domain.NewPendingRecord("r1", "X", "great", "5"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, domain.StatusPending, stored.Status)

	_, err = repo.CompletePending(ctx, "r1", mustSentiment(t))
	require.NoError(t, err)

	stored, inserted, err = repo.Upsert(ctx, domain.NewPendingRecord("r1", "Y", "still great", "4"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "still great", stored.Text)

	rec, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, "Y", rec.AppName)
	require.NotNil(t, rec.Sentiment)
}

func TestMemoryRepositoryCompletePending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.CompletePending(ctx, "missing", mustSentiment(t))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = repo.Upsert(ctx, domain.NewPendingRecord("r1", "X", "great", "5"))
	require.NoError(t, err)

	rec, err := repo.CompletePending(ctx, "r1", mustSentiment(t))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, domain.LabelPositive, rec.Sentiment.Label)

	_, err = repo.CompletePending(ctx, "r1", mustSentiment(t))
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
}

func TestMemoryRepositoryConcurrentCompleteWinsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	_, _, err := repo.Upsert(ctx, domain.NewPendingRecord("r1", "X", "great", "5"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CompletePending(ctx, "r1", mustSentiment(t)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestMemoryRepositoryListCompletedPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%d", i)
		_, _, err := repo.Upsert(ctx, domain.NewPendingRecord(id, "X", "t", "1"))
		require.NoError(t, err)
		if i != 2 {
			_, err = repo.CompletePending(ctx, id, mustSentiment(t))
			require.NoError(t, err)
		}
	}

	page, err := repo.ListCompleted(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r0", page[0].ID)
	assert.Equal(t, "r1", page[1].ID)

	page, err = repo.ListCompleted(ctx, "r1", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r3", page[0].ID)
	assert.Equal(t, "r4", page[1].ID)
}

func TestMemoryRepositoryListPendingHonorsCutoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	clock := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := repo.Upsert(ctx, domain.NewPendingRecord(id, "X", "t", "1"))
		require.NoError(t, err)
	}
	_, err := repo.CompletePending(ctx, "b", mustSentiment(t))
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	_, _, err = repo.Upsert(ctx, domain.NewPendingRecord("d", "X", "t", "1"))
	require.NoError(t, err)

	page, err := repo.ListPending(ctx, "", clock.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	page, err = repo.ListPending(ctx, "a", clock.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)
}
