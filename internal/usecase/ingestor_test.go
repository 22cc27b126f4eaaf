package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewMind/internal/domain"
)

func TestIngestNormalizesRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.Seed(testBucket, "in/batch.csv", []byte(
		"review_id,app_name,review_text,rating\n"+
			"r1,Chat,Love it,5\n"+
			",,,\n"+
			" ,  ,Meh,\n"))

	in := NewIngestor(IngestorDeps{Repository: f.repo, Store: f.store, Pool: f.pool})
	loc := domain.BatchLocator{Bucket: testBucket, Key: "in/batch.csv"}
	result, err := in.Ingest(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, IngestStatusSuccess, result.Status)
	assert.Equal(t, loc, result.Batch)
	require.Len(t, result.Outcomes, 3)
	assert.Zero(t, result.Failed())
	assert.Equal(t, 3, f.repo.Len())

	r1, err := f.repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Chat", r1.AppName)
	assert.Equal(t, "Love it", r1.Text)
	assert.Equal(t, "5", r1.Rating)
	assert.Equal(t, domain.StatusPending, r1.Status)

	empty := result.Outcomes[1].ReviewID
	_, err = uuid.Parse(empty)
	require.NoError(t, err, "all-empty row gets a UUID")

	rec, err := f.repo.Get(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppName, rec.AppName)
	assert.Equal(t, domain.DefaultRating, rec.Rating)
	assert.Equal(t, "", rec.Text)
	assert.Equal(t, domain.StatusPending, rec.Status)

	generated := result.Outcomes[2].ReviewID
	_, err = uuid.Parse(generated)
	require.NoError(t, err, "blank id gets a UUID")
	assert.NotEqual(t, empty, generated)

	rec, err = f.repo.Get(context.Background(), generated)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppName, rec.AppName)
	assert.Equal(t, domain.DefaultRating, rec.Rating)
	assert.Equal(t, "Meh", rec.Text)
	assert.Equal(t, domain.StatusPending, rec.Status)
}

func TestIngestRowWithOnlyEmptyFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.Seed(testBucket, "in/empty.csv", []byte("app_name,review_text,rating\n,,\n"))

	in := NewIngestor(IngestorDeps{Repository: f.repo, Store: f.store, Pool: f.pool, NewID: func() string { return "gen-1" }})
	result, err := in.Ingest(context.Background(), domain.BatchLocator{Bucket: testBucket, Key: "in/empty.csv"})
	require.NoError(t, err)

	assert.Equal(t, IngestStatusSuccess, result.Status)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "gen-1", result.Outcomes[0].ReviewID)
	assert.True(t, result.Outcomes[0].Inserted)

	rec, err := f.repo.Get(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rec.AppName)
	assert.Equal(t, "", rec.Text)
	assert.Equal(t, "0", rec.Rating)
	assert.Equal(t, domain.StatusPending, rec.Status)
}

func TestIngestGeneratesUniqueIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var b strings.Builder
	b.WriteString("review_text\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "review %d\n", i)
	}
	f.store.Seed(testBucket, "ids.csv", []byte(b.String()))

	in := NewIngestor(IngestorDeps{Repository: f.repo, Store: f.store, Pool: f.pool})
	result, err := in.Ingest(context.Background(), domain.BatchLocator{Bucket: testBucket, Key: "ids.csv"})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, o := range result.Outcomes {
		require.NoError(t, o.Err)
		assert.True(t, o.Inserted)
		assert.False(t, seen[o.ReviewID], "duplicate id %s", o.ReviewID)
		seen[o.ReviewID] = true
	}
	assert.Len(t, seen, 200)
	assert.Equal(t, 200, f.repo.Len())
}

func TestIngestKeepsCompletedStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedPending(t, "r1", "old text")
	s, err := domain.NewSentiment("POSITIVE", 1, 0, 0, 0)
	require.NoError(t, err)
	_, err = f.repo.CompletePending(ctx, "r1", s)
	require.NoError(t, err)

	f.store.Seed(testBucket, "again.csv", []byte("review_id,review_text\nr1,new text\n"))
	in := NewIngestor(IngestorDeps{Repository: f.repo, Store: f.store})
	result, err := in.Ingest(ctx, domain.BatchLocator{Bucket: testBucket, Key: "again.csv"})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.False(t, result.Outcomes[0].Inserted)

	rec, err := f.repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, "new text", rec.Text)
	require.NotNil(t, rec.Sentiment)
}

func TestIngestRowFailuresDoNotAbortBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	repo := failingRepository{MemoryRepository: f.repo, failIDs: map[string]bool{"bad": true}}
	f.store.Seed(testBucket, "mixed.csv", []byte("review_id,review_text\nok1,a\nbad,b\nok2,c\n"))

	in := NewIngestor(IngestorDeps{Repository: repo, Store: f.store, Pool: f.pool})
	result, err := in.Ingest(context.Background(), domain.BatchLocator{Bucket: testBucket, Key: "mixed.csv"})
	require.NoError(t, err)

	assert.Equal(t, IngestStatusSuccess, result.Status)
	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, 2, result.Stored())
	assert.Error(t, result.Outcomes[1].Err)
	assert.Equal(t, 2, f.repo.Len())
}

func TestIngestUnreadableBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	in := NewIngestor(IngestorDeps{Repository: f.repo, Store: f.store})

	_, err := in.Ingest(context.Background(), domain.BatchLocator{Bucket: testBucket, Key: "missing.csv"})
	assert.Error(t, err)
	assert.Zero(t, f.repo.Len())
}

func TestIngestCustomIDGenerator(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.Seed(testBucket, "gen.csv", []byte("review_text\nhello\n"))

	in := NewIngestor(IngestorDeps{
		Repository: f.repo,
		Store:      f.store,
		NewID:      func() string { return "fixed-id" },
	})
	result, err := in.Ingest(context.Background(), domain.BatchLocator{Bucket: testBucket, Key: "gen.csv"})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "fixed-id", result.Outcomes[0].ReviewID)
}
