package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ReviewMind/internal/classifier"
	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
	"ReviewMind/internal/infrastructure/changefeed"
	"ReviewMind/internal/infrastructure/llm"
	"ReviewMind/internal/infrastructure/ml"
	"ReviewMind/internal/infrastructure/objectstore"
	"ReviewMind/internal/infrastructure/scheduler"
	"ReviewMind/internal/infrastructure/storage"
	"ReviewMind/internal/logging"
	"ReviewMind/internal/ports"
	"ReviewMind/internal/telemetry"
	"ReviewMind/internal/usecase"
	"ReviewMind/internal/workerpool"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *zap.Logger

	redis      *redis.Client
	submitter  *changefeed.Publisher
	ingestor   *usecase.Ingestor
	dispatcher *usecase.Dispatcher
	reconciler *usecase.Reconciler
	scheduler  *usecase.Scheduler

	closers []func(context.Context) error
}

// New connects every external dependency and builds the use cases.
func New(ctx context.Context, cfg config.Config, baseLogger *zap.Logger) (_ *Application, err error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, baseLogger.With(zap.String("component", "telemetry")))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	pgPool, err := storage.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { pgPool.Close(); return nil })

	pgRepo := storage.NewPostgresRepository(pgPool, cfg.Database.Table)
	if err := pgRepo.EnsureTable(ctx); err != nil {
		return nil, err
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func(context.Context) error { return a.redis.Close() })
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	changes := changefeed.NewPublisher(a.redis, cfg.Streams.Changes.Stream, baseLogger.With(zap.String("component", "changefeed.publisher")))
	a.submitter = changefeed.NewPublisher(a.redis, cfg.Streams.Batches.Stream, baseLogger.With(zap.String("component", "batch.submitter")))
	repo := changefeed.NewNotifyingRepository(pgRepo, changes, baseLogger.With(zap.String("component", "repository")))

	gcs, err := objectstore.NewGCSClient(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return gcs.Close() })
	store := objectstore.NewGCSStore(gcs, cfg.Artifacts.Bucket, baseLogger.With(zap.String("component", "objectstore")))

	sentiment, err := resolveClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}

	ingestPool, err := workerpool.New("ingest", cfg.Workers.IngestPoolSize, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return ingestPool.Release(shutdownTimeout) })

	enrichPool, err := workerpool.New("enrich", cfg.Workers.EnrichPoolSize, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("create enrich pool: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return enrichPool.Release(shutdownTimeout) })

	a.ingestor = usecase.NewIngestor(usecase.IngestorDeps{
		Repository: repo,
		Store:      store,
		Pool:       ingestPool,
		Logger:     baseLogger.With(zap.String("component", "ingestor")),
	})

	enricher := usecase.NewEnricher(usecase.EnricherDeps{
		Repository:  repo,
		Store:       store,
		Classifier:  sentiment,
		KeyTemplate: cfg.Artifacts.KeyTemplate,
		Logger:      baseLogger.With(zap.String("component", "enricher")),
	})
	a.dispatcher = usecase.NewDispatcher(enricher, enrichPool, baseLogger.With(zap.String("component", "dispatcher")))

	a.reconciler = usecase.NewReconciler(usecase.ReconcilerDeps{
		Repository:   pgRepo,
		Store:        store,
		Publisher:    changes,
		KeyTemplate:  cfg.Artifacts.KeyTemplate,
		PageSize:     cfg.Reconciler.PageSize,
		PendingGrace: cfg.Reconciler.PendingGrace,
		Logger:       baseLogger.With(zap.String("component", "reconciler")),
	})
	if !cfg.Reconciler.Disabled {
		driver := scheduler.NewCronScheduler(cfg.Reconciler.CronExpression, cfg.Reconciler.Location(),
			baseLogger.With(zap.String("component", "cron")))
		a.scheduler = usecase.NewScheduler(driver, a.reconciler, baseLogger.With(zap.String("component", "scheduler")))
	}

	baseLogger.Info("application initialized",
		zap.String("classifier", cfg.Classifier.Provider),
		zap.String("bucket", cfg.Artifacts.Bucket),
		zap.String("change_stream", cfg.Streams.Changes.Stream),
		zap.String("batch_stream", cfg.Streams.Batches.Stream))

	return a, nil
}

func resolveClassifier(cfg config.ClassifierConfig) (ports.Classifier, error) {
	registry := classifier.NewRegistry()
	if cfg.Endpoint != "" {
		registry.Register(ml.NewClient(cfg))
	}
	if cfg.APIKey != "" {
		openAI, err := llm.NewOpenAIClassifier(cfg)
		if err != nil {
			return nil, err
		}
		registry.Register(openAI)
	}

	provider, err := registry.Resolve(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve classifier (check endpoint and api key): %w", err)
	}
	return provider, nil
}

// Run starts both stream listeners and the reconciler and blocks until ctx
// is cancelled or a listener fails.
func (a *Application) Run(ctx context.Context) error {
	changes, err := changefeed.NewRedisConsumer(ctx, a.redis, a.cfg.Streams.Changes,
		a.logger.With(zap.String("component", "consumer.changes")))
	if err != nil {
		return err
	}
	batches, err := changefeed.NewRedisConsumer(ctx, a.redis, a.cfg.Streams.Batches,
		a.logger.With(zap.String("component", "consumer.batches")))
	if err != nil {
		return err
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler schedule: %w", err)
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return changes.Listen(gctx, ChangeHandler(a.dispatcher, a.logger))
	})
	group.Go(func() error {
		return batches.Listen(gctx, BatchHandler(a.ingestor, a.logger))
	})

	runErr := group.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.scheduler != nil {
		if err := a.scheduler.Stop(stopCtx); err != nil {
			a.logger.Warn("stop scheduler", zap.Error(err))
		}
	}

	return runErr
}

// SubmitBatch enqueues a batch file on the trigger stream.
func (a *Application) SubmitBatch(ctx context.Context, loc domain.BatchLocator) error {
	if loc.Bucket == "" {
		loc.Bucket = a.cfg.Artifacts.Bucket
	}
	return a.submitter.SubmitBatch(ctx, loc)
}

// Ingest runs a batch synchronously, bypassing the trigger stream.
func (a *Application) Ingest(ctx context.Context, loc domain.BatchLocator) (usecase.IngestResult, error) {
	if loc.Bucket == "" {
		loc.Bucket = a.cfg.Artifacts.Bucket
	}
	return a.ingestor.Ingest(ctx, loc)
}

// Reconcile runs one artifact sweep.
func (a *Application) Reconcile(ctx context.Context) (usecase.ReconcileReport, error) {
	return a.reconciler.Reconcile(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
