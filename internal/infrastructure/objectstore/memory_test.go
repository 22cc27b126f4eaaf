package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewMind/internal/domain"
)

func TestMemoryStoreOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore("artifacts")
	store.Seed("input", "batches/a.csv", []byte("review_id\nr1\n"))

	r, err := store.Open(ctx, domain.BatchLocator{Bucket: "input", Key: "batches/a.csv"})
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "review_id\nr1\n", string(body))

	_, err = store.Open(ctx, domain.BatchLocator{Bucket: "input", Key: "missing.csv"})
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStorePutExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore("artifacts")

	ok, err := store.Exists(ctx, "processed/review_r1.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "processed/review_r1.json", []byte(`{}`), "application/json"))
	ok, err = store.Exists(ctx, "processed/review_r1.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Puts())

	boom := errors.New("boom")
	store.FailPuts(boom)
	assert.ErrorIs(t, store.Put(ctx, "processed/review_r2.json", nil, ""), boom)
	assert.Equal(t, 1, store.Puts())
}
