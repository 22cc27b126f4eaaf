package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

const (
	defaultReconcilePageSize = 200
	defaultPendingGrace      = 15 * time.Minute
)

// ReconcileReport counts what one sweep found.
type ReconcileReport struct {
	Scanned     int
	Repaired    int
	Republished int
	Failed      int
}

// ReconcilerDeps wires the sweep. A nil Publisher disables the PENDING replay.
type ReconcilerDeps struct {
	Repository   ports.ReviewRepository
	Store        ports.ArtifactStore
	Publisher    ports.ChangePublisher
	KeyTemplate  string
	PageSize     int
	PendingGrace time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
}

// Reconciler rewrites missing artifacts for COMPLETED reviews and replays the
// INSERT event of reviews stuck in PENDING.
type Reconciler struct {
	repo      ports.ReviewRepository
	artifacts artifactWriter
	publisher ports.ChangePublisher
	pageSize  int
	grace     time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewReconciler(deps ReconcilerDeps) *Reconciler {
	r := &Reconciler{
		repo:      deps.Repository,
		artifacts: artifactWriter{store: deps.Store, template: deps.KeyTemplate},
		publisher: deps.Publisher,
		pageSize:  deps.PageSize,
		grace:     deps.PendingGrace,
		now:       deps.Now,
		logger:    deps.Logger,
	}
	if r.pageSize <= 0 {
		r.pageSize = defaultReconcilePageSize
	}
	if r.grace <= 0 {
		r.grace = defaultPendingGrace
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Reconcile walks all COMPLETED reviews in id order, then the stale PENDING
// ones. A per-record failure is counted and logged; only a listing failure
// aborts the sweep.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer().Start(ctx, "reconcile.artifacts")

	var (
		report  ReconcileReport
		afterID string
	)
	for {
		if err := ctx.Err(); err != nil {
			endSpan(span, err)
			return report, err
		}

		page, err := r.repo.ListCompleted(ctx, afterID, r.pageSize)
		if err != nil {
			err = fmt.Errorf("list completed after %q: %w", afterID, err)
			endSpan(span, err)
			return report, err
		}

		for _, rec := range page {
			report.Scanned++
			if rec.Sentiment == nil {
				continue
			}

			key := r.artifacts.key(rec.ID)
			exists, err := r.artifacts.store.Exists(ctx, key)
			if err != nil {
				report.Failed++
				r.logger.Warn("artifact lookup failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if exists {
				continue
			}

			at := rec.UpdatedAt
			if at.IsZero() {
				at = r.now()
			}
			if _, err := r.artifacts.write(ctx, rec.ID, rec.Text, *rec.Sentiment, at); err != nil {
				report.Failed++
				r.logger.Warn("artifact repair failed", zap.String("review_id", rec.ID), zap.Error(err))
				continue
			}
			report.Repaired++
			r.logger.Info("artifact repaired", zap.String("review_id", rec.ID), zap.String("key", key))
		}

		if len(page) < r.pageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	if r.publisher != nil {
		if err := r.replayPending(ctx, &report); err != nil {
			endSpan(span, err)
			return report, err
		}
	}

	span.SetAttributes(
		attribute.Int("scanned", report.Scanned),
		attribute.Int("repaired", report.Repaired),
		attribute.Int("republished", report.Republished),
		attribute.Int("failed", report.Failed),
	)
	endSpan(span, nil)
	return report, nil
}

// replayPending publishes a fresh INSERT for every PENDING review untouched
// for longer than the grace period. A replay racing the original event is
// absorbed by the conditional completion.
func (r *Reconciler) replayPending(ctx context.Context, report *ReconcileReport) error {
	cutoff := r.now().Add(-r.grace)
	var afterID string
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := r.repo.ListPending(ctx, afterID, cutoff, r.pageSize)
		if err != nil {
			return fmt.Errorf("list pending after %q: %w", afterID, err)
		}

		for _, rec := range page {
			if err := r.publisher.Publish(ctx, domain.EventInsert, rec.Image()); err != nil {
				report.Failed++
				r.logger.Warn("pending replay failed", zap.String("review_id", rec.ID), zap.Error(err))
				continue
			}
			report.Republished++
			r.logger.Info("pending review replayed", zap.String("review_id", rec.ID))
		}

		if len(page) < r.pageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}
