package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

// EnricherDeps wires the worker's collaborators.
type EnricherDeps struct {
	Repository  ports.ReviewRepository
	Store       ports.ArtifactStore
	Classifier  ports.Classifier
	KeyTemplate string
	Now         func() time.Time
	Logger      *zap.Logger
}

// Enricher classifies one review, completes it and writes its artifact.
type Enricher struct {
	repo       ports.ReviewRepository
	classifier ports.Classifier
	artifacts  artifactWriter
	now        func() time.Time
	logger     *zap.Logger
}

func NewEnricher(deps EnricherDeps) *Enricher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		repo:       deps.Repository,
		classifier: deps.Classifier,
		artifacts:  artifactWriter{store: deps.Store, template: deps.KeyTemplate},
		now:        now,
		logger:     logger,
	}
}

// Process runs a status read, classify, the conditional PENDING -> COMPLETED
// write and the artifact write, in that order.
//
// A classifier or store failure leaves the record untouched. Losing the
// conditional write to a concurrent worker yields OutcomeSkipped. An artifact
// failure is returned wrapped in domain.ErrArtifactWrite with the record
// already COMPLETED.
func (e *Enricher) Process(ctx context.Context, reviewID, text string) (domain.OutcomeKind, error) {
	ctx, span := tracer().Start(ctx, "enrich.review")
	span.SetAttributes(attribute.String("review_id", reviewID))

	kind, err := e.process(ctx, reviewID, text)
	span.SetAttributes(attribute.String("outcome", string(kind)))
	endSpan(span, err)
	return kind, err
}

func (e *Enricher) process(ctx context.Context, reviewID, text string) (domain.OutcomeKind, error) {
	// Fast path only; CompletePending is the real guard.
	current, err := e.repo.Get(ctx, reviewID)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("load review %s: %w", reviewID, err)
	}
	if current.Status.Terminal() {
		e.logger.Debug("review already completed", zap.String("review_id", reviewID))
		return domain.OutcomeSkipped, nil
	}

	sentiment, err := e.classifier.Classify(ctx, text)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("%w: review %s: %w", domain.ErrClassification, reviewID, err)
	}

	if _, err := e.repo.CompletePending(ctx, reviewID, sentiment); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			e.logger.Debug("review already completed", zap.String("review_id", reviewID))
			return domain.OutcomeSkipped, nil
		}
		return domain.OutcomeFailed, fmt.Errorf("complete review %s: %w", reviewID, err)
	}

	key, err := e.artifacts.write(ctx, reviewID, text, sentiment, e.now())
	if err != nil {
		e.logger.Warn("artifact write failed, left for reconciler",
			zap.String("review_id", reviewID),
			zap.String("key", key),
			zap.Error(err))
		return domain.OutcomeCompleted, err
	}

	e.logger.Debug("review enriched",
		zap.String("review_id", reviewID),
		zap.String("sentiment", string(sentiment.Label)),
		zap.String("key", key))
	return domain.OutcomeCompleted, nil
}
