package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/workerpool"
)

const (
	EnrichStatusOK             = "OK"
	EnrichStatusPartialFailure = "PARTIAL_FAILURE"
)

// EnrichResult holds one outcome per input event, in input order.
type EnrichResult struct {
	Status   string
	Outcomes []domain.EventOutcome
}

// Failed counts events whose outcome carries an error.
func (r EnrichResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Dispatcher filters change events and hands pending reviews to the enricher.
type Dispatcher struct {
	enricher *Enricher
	pool     *workerpool.Pool
	logger   *zap.Logger
}

func NewDispatcher(enricher *Enricher, pool *workerpool.Pool, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{enricher: enricher, pool: pool, logger: logger}
}

// Enrich processes a batch of change events. Only INSERT and MODIFY events
// whose image is not yet COMPLETED reach the enricher; one event's failure
// never affects the others.
func (d *Dispatcher) Enrich(ctx context.Context, events []domain.ChangeEvent) EnrichResult {
	ctx, span := tracer().Start(ctx, "enrich.batch")
	span.SetAttributes(attribute.Int("events", len(events)))

	outcomes := make([]domain.EventOutcome, len(events))
	var work []int

	for i, ev := range events {
		outcomes[i] = domain.EventOutcome{EventID: ev.ID}
		if ev.NewImage != nil {
			outcomes[i].ReviewID = strings.TrimSpace(ev.NewImage.ReviewID)
		}

		switch {
		case !ev.Kind.TriggersEnrichment():
			outcomes[i].Kind = domain.OutcomeIgnored
		case ev.NewImage == nil:
			outcomes[i].Kind = domain.OutcomeFailed
			outcomes[i].Err = fmt.Errorf("%w: %s event without image", domain.ErrMalformedEvent, ev.Kind)
		case outcomes[i].ReviewID == "":
			outcomes[i].Kind = domain.OutcomeFailed
			outcomes[i].Err = fmt.Errorf("%w: image without review_id", domain.ErrMalformedEvent)
		case ev.NewImage.AnalysisStatus == domain.StatusCompleted:
			outcomes[i].Kind = domain.OutcomeSkipped
		default:
			work = append(work, i)
		}
	}

	forEach(ctx, d.pool, len(work), func(ctx context.Context, n int) {
		i := work[n]
		kind, err := d.enricher.Process(ctx, outcomes[i].ReviewID, events[i].NewImage.ReviewText)
		outcomes[i].Kind = kind
		outcomes[i].Err = err
	})

	result := EnrichResult{Status: EnrichStatusOK, Outcomes: outcomes}
	if failed := result.Failed(); failed > 0 {
		result.Status = EnrichStatusPartialFailure
		for _, o := range outcomes {
			if o.Failed() {
				d.logger.Warn("event failed",
					zap.String("event_id", o.EventID),
					zap.String("review_id", o.ReviewID),
					zap.Error(o.Err))
			}
		}
	}

	span.SetAttributes(
		attribute.Int("events.enriched", len(work)),
		attribute.String("status", result.Status),
	)
	endSpan(span, nil)

	d.logger.Info("change events dispatched",
		zap.Int("events", len(events)),
		zap.Int("enriched", len(work)),
		zap.Int("failed", result.Failed()),
		zap.String("status", result.Status))

	return result
}
