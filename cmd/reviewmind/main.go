package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ReviewMind/internal/app"
	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
	"ReviewMind/internal/logging"
)

type runEnv struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger
}

type serveCmd struct{}

func (serveCmd) Run(rt *runEnv) error {
	return withApp(rt, func(a *app.Application) error {
		rt.logger.Info("reviewmind started")
		return a.Run(rt.ctx)
	})
}

type submitCmd struct {
	Bucket string `help:"Bucket holding the batch file; defaults to the artifact bucket."`
	Key    string `arg:"" help:"Object key of the CSV batch file."`
}

func (c submitCmd) Run(rt *runEnv) error {
	return withApp(rt, func(a *app.Application) error {
		return a.SubmitBatch(rt.ctx, domain.BatchLocator{Bucket: c.Bucket, Key: c.Key})
	})
}

type ingestCmd struct {
	Bucket string `help:"Bucket holding the batch file; defaults to the artifact bucket."`
	Key    string `arg:"" help:"Object key of the CSV batch file."`
}

func (c ingestCmd) Run(rt *runEnv) error {
	return withApp(rt, func(a *app.Application) error {
		result, err := a.Ingest(rt.ctx, domain.BatchLocator{Bucket: c.Bucket, Key: c.Key})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s stored=%d failed=%d\n", result.Status, result.Batch, result.Stored(), result.Failed())
		return nil
	})
}

type reconcileCmd struct{}

func (reconcileCmd) Run(rt *runEnv) error {
	return withApp(rt, func(a *app.Application) error {
		report, err := a.Reconcile(rt.ctx)
		if err != nil {
			return err
		}
		fmt.Printf("scanned=%d repaired=%d republished=%d failed=%d\n",
			report.Scanned, report.Repaired, report.Republished, report.Failed)
		return nil
	})
}

var cli struct {
	Serve     serveCmd     `cmd:"" default:"1" help:"Run the ingest and enrichment listeners with the reconciler schedule."`
	Submit    submitCmd    `cmd:"" help:"Enqueue a batch file for ingestion."`
	Ingest    ingestCmd    `cmd:"" help:"Ingest a batch file synchronously."`
	Reconcile reconcileCmd `cmd:"" help:"Rewrite missing artifacts and replay stale PENDING reviews once."`
}

func withApp(rt *runEnv, fn func(*app.Application) error) error {
	application, err := app.New(rt.ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := application.Close(ctx); err != nil {
			rt.logger.Warn("close application", zap.Error(err))
		}
	}()
	return fn(application)
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("reviewmind"),
		kong.Description("Review ingestion and sentiment enrichment pipeline."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = logger.Sync() }()

	if err := kctx.Run(&runEnv{ctx: ctx, cfg: cfg, logger: logger}); err != nil {
		logger.Error("application stopped", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}
