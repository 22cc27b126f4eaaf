package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"ReviewMind/internal/domain"
	"ReviewMind/internal/infrastructure/parser"
	"ReviewMind/internal/ports"
	"ReviewMind/internal/workerpool"
)

// IngestStatusSuccess is reported for every batch that could be read,
// whatever happened to its individual rows.
const IngestStatusSuccess = "SUCCESS"

// IngestorDeps wires the driven adapters used by the ingestor.
type IngestorDeps struct {
	Repository ports.ReviewRepository
	Store      ports.ArtifactStore
	Pool       *workerpool.Pool
	// NewID generates ids for rows without one. Defaults to UUIDv4.
	NewID  func() string
	Logger *zap.Logger
}

// Ingestor turns batch files into PENDING review records.
type Ingestor struct {
	repo   ports.ReviewRepository
	store  ports.ArtifactStore
	pool   *workerpool.Pool
	newID  func() string
	logger *zap.Logger
}

// RowOutcome is the result of one data line.
type RowOutcome struct {
	Line     int
	ReviewID string
	Inserted bool
	Err      error
}

// IngestResult summarizes a batch.
type IngestResult struct {
	Status   string
	Batch    domain.BatchLocator
	Outcomes []RowOutcome
}

// Failed counts rows that were not stored.
func (r IngestResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Stored counts rows that were written to the record store.
func (r IngestResult) Stored() int {
	return len(r.Outcomes) - r.Failed()
}

func NewIngestor(deps IngestorDeps) *Ingestor {
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		repo:   deps.Repository,
		store:  deps.Store,
		pool:   deps.Pool,
		newID:  newID,
		logger: logger,
	}
}

// Ingest reads the batch file and upserts one PENDING record per row.
// Row failures are reported in the result; only an unreadable batch is an error.
func (in *Ingestor) Ingest(ctx context.Context, loc domain.BatchLocator) (IngestResult, error) {
	ctx, span := tracer().Start(ctx, "ingest.batch")
	span.SetAttributes(attribute.String("batch", loc.String()))

	rows, err := in.readBatch(ctx, loc)
	if err != nil {
		endSpan(span, err)
		return IngestResult{}, err
	}

	outcomes := make([]RowOutcome, len(rows))
	forEach(ctx, in.pool, len(rows), func(ctx context.Context, i int) {
		outcomes[i] = in.ingestRow(ctx, rows[i])
	})

	result := IngestResult{Status: IngestStatusSuccess, Batch: loc, Outcomes: outcomes}
	span.SetAttributes(
		attribute.Int("rows", len(rows)),
		attribute.Int("rows.failed", result.Failed()),
	)
	endSpan(span, nil)

	in.logger.Info("batch ingested",
		zap.String("batch", loc.String()),
		zap.Int("rows", len(rows)),
		zap.Int("stored", result.Stored()),
		zap.Int("failed", result.Failed()))

	return result, nil
}

func (in *Ingestor) readBatch(ctx context.Context, loc domain.BatchLocator) ([]parser.Row, error) {
	body, err := in.store.Open(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", loc, err)
	}
	defer body.Close()

	rows, err := parser.ReadRows(body)
	if err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", loc, err)
	}
	return rows, nil
}

func (in *Ingestor) ingestRow(ctx context.Context, row parser.Row) RowOutcome {
	outcome := RowOutcome{Line: row.Line}
	if row.Err != nil {
		outcome.Err = row.Err
		in.logger.Warn("skipping unparseable row", zap.Int("line", row.Line), zap.Error(row.Err))
		return outcome
	}

	id := domain.ResolveID(row.ReviewID, in.newID)
	outcome.ReviewID = id

	_, inserted, err := in.repo.Upsert(ctx, domain.NewPendingRecord(id, row.AppName, row.Text, row.Rating))
	if err != nil {
		outcome.Err = fmt.Errorf("store row %d: %w", row.Line, err)
		in.logger.Warn("failed to store row",
			zap.Int("line", row.Line),
			zap.String("review_id", id),
			zap.Error(err))
		return outcome
	}

	outcome.Inserted = inserted
	return outcome
}

// forEach fans out over pool, or runs inline when no pool is configured.
func forEach(ctx context.Context, pool *workerpool.Pool, n int, fn func(ctx context.Context, i int)) {
	if pool == nil {
		for i := 0; i < n; i++ {
			fn(ctx, i)
		}
		return
	}
	pool.ForEach(ctx, n, fn)
}
