// Package workerpool bounds the fan-out of per-row and per-event work.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool wraps ants.Pool with an indexed fan-out.
type Pool struct {
	pool   *ants.Pool
	name   string
	logger *zap.Logger
}

// New creates a blocking pool of the given size.
func New(name string, size int, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1
	}
	log := logger.With(zap.String("pool", name))

	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v interface{}) {
			log.Error("worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Pool{pool: p, name: name, logger: log}, nil
}

// ForEach runs fn for every index in [0, n) and waits for all calls to return.
// fn always runs so callers can record a result per index; if the pool
// refuses a task it runs inline.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		task := func() {
			defer wg.Done()
			fn(ctx, i)
		}
		if err := p.pool.Submit(task); err != nil {
			p.logger.Warn("pool rejected task, running inline", zap.Error(err))
			task()
		}
	}
	wg.Wait()
}

// Release waits up to timeout for running tasks, then frees the pool.
func (p *Pool) Release(timeout time.Duration) error {
	stats := p.Stats()
	p.logger.Info("releasing pool",
		zap.Int("running", stats.Running),
		zap.Int("free", stats.Free),
		zap.Int("cap", stats.Cap))
	return p.pool.ReleaseTimeout(timeout)
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Running int
	Free    int
	Cap     int
}

func (p *Pool) Stats() Stats {
	return Stats{
		Running: p.pool.Running(),
		Free:    p.pool.Free(),
		Cap:     p.pool.Cap(),
	}
}
