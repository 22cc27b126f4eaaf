package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

const (
	tracerName          = "ReviewMind/usecase"
	artifactContentType = "application/json"
)

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// artifactWriter renders and stores the per-review JSON document.
type artifactWriter struct {
	store    ports.ArtifactStore
	template string
}

func (w artifactWriter) key(reviewID string) string {
	return domain.ArtifactKey(w.template, reviewID)
}

func (w artifactWriter) write(ctx context.Context, reviewID, text string, s domain.Sentiment, at time.Time) (string, error) {
	key := w.key(reviewID)

	body, err := json.Marshal(domain.NewArtifact(reviewID, text, s, at))
	if err != nil {
		return key, fmt.Errorf("%w: marshal %s: %w", domain.ErrArtifactWrite, key, err)
	}
	if err := w.store.Put(ctx, key, body, artifactContentType); err != nil {
		return key, fmt.Errorf("%w: put %s: %w", domain.ErrArtifactWrite, key, err)
	}
	return key, nil
}
