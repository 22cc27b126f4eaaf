package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ReviewMind/internal/ports"
)

// Scheduler wires the cron-like driver with the reconciler.
type Scheduler struct {
	driver     ports.Scheduler
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, reconciler *Reconciler, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{driver: driver, reconciler: reconciler, logger: logger}
}

// Start registers the reconciler with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.reconciler == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.reconciler.Reconcile(ctx)
		if err != nil {
			s.logger.Error("reconcile run failed", zap.Time("trigger", trigger), zap.Error(err))
			return
		}
		s.logger.Info("reconcile run finished",
			zap.Time("trigger", trigger),
			zap.Int("scanned", report.Scanned),
			zap.Int("repaired", report.Repaired),
			zap.Int("republished", report.Republished),
			zap.Int("failed", report.Failed))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
