package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// Publisher appends change events and batch triggers to Redis streams.
type Publisher struct {
	client redis.Cmdable
	stream string
	logger *zap.Logger
}

var _ ports.ChangePublisher = (*Publisher)(nil)

func NewPublisher(client redis.Cmdable, stream string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, stream: stream, logger: logger}
}

// Publish emits a change event carrying the post-change image.
func (p *Publisher) Publish(ctx context.Context, kind domain.EventKind, image domain.RecordImage) error {
	body, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			FieldEventKind: string(kind),
			FieldNewImage:  string(body),
			FieldAttempt:   1,
		},
	}).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}

	p.logger.Debug("change event published",
		zap.String("stream", p.stream),
		zap.String("event_kind", string(kind)),
		zap.String("review_id", image.ReviewID))
	return nil
}

// SubmitBatch enqueues a batch file for ingestion.
func (p *Publisher) SubmitBatch(ctx context.Context, loc domain.BatchLocator) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			FieldBucket:  loc.Bucket,
			FieldKey:     loc.Key,
			FieldAttempt: 1,
		},
	}).Err(); err != nil {
		return fmt.Errorf("submit batch %s: %w", loc, err)
	}

	p.logger.Info("batch submitted", zap.String("stream", p.stream), zap.String("batch", loc.String()))
	return nil
}
