package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPoolForEachRunsEveryIndex(t *testing.T) {
	t.Parallel()

	pool, err := New("test", 3, nil)
	require.NoError(t, err)
	defer func() { _ = pool.Release(time.Second) }()

	const n = 50
	seen := make([]int32, n)
	pool.ForEach(context.Background(), n, func(ctx context.Context, i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, v := range seen {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestPoolForEachAfterRelease(t *testing.T) {
	t.Parallel()

	pool, err := New("test", 2, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Release(time.Second))

	var count atomic.Int32
	pool.ForEach(context.Background(), 5, func(ctx context.Context, i int) {
		count.Add(1)
	})
	assert.Equal(t, int32(5), count.Load())
}

func TestPoolSurvivesPanic(t *testing.T) {
	t.Parallel()

	pool, err := New("test", 2, nil)
	require.NoError(t, err)
	defer func() { _ = pool.Release(time.Second) }()

	var count atomic.Int32
	pool.ForEach(context.Background(), 4, func(ctx context.Context, i int) {
		if i == 0 {
			panic("boom")
		}
		count.Add(1)
	})
	assert.Equal(t, int32(3), count.Load())
}

func TestPoolReleaseLogsStats(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	pool, err := New("ingest", 3, zap.New(core))
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, Stats{Running: 0, Free: 3, Cap: 3}, stats)

	require.NoError(t, pool.Release(time.Second))

	released := logs.FilterMessage("releasing pool").All()
	require.Len(t, released, 1)
	fields := released[0].ContextMap()
	assert.Equal(t, "ingest", fields["pool"])
	assert.Equal(t, int64(3), fields["cap"])
}
