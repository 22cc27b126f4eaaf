package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/infrastructure/changefeed"
	"ReviewMind/internal/usecase"
)

// ChangeHandler decodes change-stream entries, runs one enrichment batch and
// maps every outcome to a settle decision for its message.
func ChangeHandler(dispatcher *usecase.Dispatcher, logger *zap.Logger) changefeed.Handler {
	return func(ctx context.Context, msgs []changefeed.Message) []error {
		errs := make([]error, len(msgs))
		events := make([]domain.ChangeEvent, 0, len(msgs))
		index := make([]int, 0, len(msgs))

		for i, msg := range msgs {
			ev, err := changefeed.DecodeChangeEvent(msg)
			if err != nil {
				errs[i] = changefeed.Permanent(err)
				continue
			}
			events = append(events, ev)
			index = append(index, i)
		}
		if len(events) == 0 {
			return errs
		}

		result := dispatcher.Enrich(ctx, events)
		for n, outcome := range result.Outcomes {
			errs[index[n]] = settleError(outcome.Err)
		}

		logger.Debug("change batch handled",
			zap.Int("messages", len(msgs)),
			zap.String("status", result.Status))
		return errs
	}
}

// settleError decides whether an enrichment error should be retried.
func settleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrArtifactWrite):
		// Record is already COMPLETED; the reconciler rewrites the artifact.
		return nil
	case errors.Is(err, domain.ErrMalformedEvent), errors.Is(err, domain.ErrNotFound):
		return changefeed.Permanent(err)
	default:
		return err
	}
}

// BatchHandler ingests each batch trigger. Only an unreadable batch is retried.
func BatchHandler(ingestor *usecase.Ingestor, logger *zap.Logger) changefeed.Handler {
	return func(ctx context.Context, msgs []changefeed.Message) []error {
		errs := make([]error, len(msgs))
		for i, msg := range msgs {
			loc, err := changefeed.DecodeBatchLocator(msg)
			if err != nil {
				errs[i] = changefeed.Permanent(err)
				continue
			}

			result, err := ingestor.Ingest(ctx, loc)
			if err != nil {
				errs[i] = err
				continue
			}
			if failed := result.Failed(); failed > 0 {
				logger.Warn("batch ingested with row failures",
					zap.String("batch", loc.String()),
					zap.Int("failed", failed),
					zap.Int("stored", result.Stored()))
			}
		}
		return errs
	}
}
