package changefeed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// NotifyingRepository publishes a change event after every successful write
// to the wrapped repository.
type NotifyingRepository struct {
	ports.ReviewRepository
	publisher ports.ChangePublisher
	logger    *zap.Logger
}

var _ ports.ReviewRepository = (*NotifyingRepository)(nil)

func NewNotifyingRepository(inner ports.ReviewRepository, publisher ports.ChangePublisher, logger *zap.Logger) *NotifyingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyingRepository{ReviewRepository: inner, publisher: publisher, logger: logger}
}

// Upsert publishes the image as stored, which may be ahead of the incoming
// record. A failed publish leaves the record PENDING without an event until
// the reconciler replays it.
func (r *NotifyingRepository) Upsert(ctx context.Context, record domain.ReviewRecord) (domain.ReviewRecord, bool, error) {
	stored, inserted, err := r.ReviewRepository.Upsert(ctx, record)
	if err != nil {
		return stored, inserted, err
	}

	kind := domain.EventModify
	if inserted {
		kind = domain.EventInsert
	}

	if err := r.publisher.Publish(ctx, kind, stored.Image()); err != nil {
		return stored, inserted, fmt.Errorf("notify %s %s: %w", kind, record.ID, err)
	}
	return stored, inserted, nil
}

func (r *NotifyingRepository) CompletePending(ctx context.Context, id string, s domain.Sentiment) (domain.ReviewRecord, error) {
	rec, err := r.ReviewRepository.CompletePending(ctx, id, s)
	if err != nil {
		return rec, err
	}

	// The write is durable; a failed completion notice is only logged.
	if pubErr := r.publisher.Publish(ctx, domain.EventModify, rec.Image()); pubErr != nil {
		r.logger.Warn("publish completion event", zap.String("review_id", id), zap.Error(pubErr))
	}
	return rec, nil
}
