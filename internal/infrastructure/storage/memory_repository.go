package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// MemoryRepository is an in-process record store with the same conditional
// semantics as PostgresRepository.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]domain.ReviewRecord
	now     func() time.Time
}

var _ ports.ReviewRepository = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: map[string]domain.ReviewRecord{},
		now:     time.Now,
	}
}

// Upsert inserts a PENDING record or refreshes the descriptive fields of an existing one.
func (r *MemoryRepository) Upsert(ctx context.Context, record domain.ReviewRecord) (domain.ReviewRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReviewRecord{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	existing, ok := r.records[record.ID]
	if !ok {
		record.Status = domain.StatusPending
		record.Sentiment = nil
		record.CreatedAt = now
		record.UpdatedAt = now
		r.records[record.ID] = record
		return record, true, nil
	}

	existing.AppName = record.AppName
	existing.Text = record.Text
	existing.Rating = record.Rating
	existing.UpdatedAt = now
	r.records[record.ID] = existing
	return existing, false, nil
}

// CompletePending flips the record to COMPLETED unless it already is.
func (r *MemoryRepository) CompletePending(ctx context.Context, id string, s domain.Sentiment) (domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReviewRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ReviewRecord{}, domain.ErrNotFound
	}
	if err := rec.Complete(s); err != nil {
		return domain.ReviewRecord{}, err
	}
	rec.UpdatedAt = r.now().UTC()
	r.records[id] = rec
	return rec, nil
}

// Get returns a copy of the stored record.
func (r *MemoryRepository) Get(ctx context.Context, id string) (domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReviewRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ReviewRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// ListCompleted returns up to limit COMPLETED records with id > afterID, ordered by id.
func (r *MemoryRepository) ListCompleted(ctx context.Context, afterID string, limit int) ([]domain.ReviewRecord, error) {
	return r.list(ctx, afterID, limit, func(rec domain.ReviewRecord) bool {
		return rec.Status == domain.StatusCompleted
	})
}

// ListPending returns PENDING records with id > afterID last written before the cutoff.
func (r *MemoryRepository) ListPending(ctx context.Context, afterID string, updatedBefore time.Time, limit int) ([]domain.ReviewRecord, error) {
	return r.list(ctx, afterID, limit, func(rec domain.ReviewRecord) bool {
		return rec.Status == domain.StatusPending && rec.UpdatedAt.Before(updatedBefore)
	})
}

func (r *MemoryRepository) list(ctx context.Context, afterID string, limit int, match func(domain.ReviewRecord) bool) ([]domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ReviewRecord, 0)
	for id, rec := range r.records {
		if id > afterID && match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many records are stored.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
