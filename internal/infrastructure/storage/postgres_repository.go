package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ReviewMind/internal/config"
	"ReviewMind/internal/domain"
	"ReviewMind/internal/ports"
)

var recordColumns = []string{
	"review_id",
	"app_name",
	"review_text",
	"rating",
	"analysis_status",
	"sentiment",
	"sentiment_score",
	"created_at",
	"updated_at",
}

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists review records into Postgres.
type PostgresRepository struct {
	db      Querier
	table   string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ReviewRepository = (*PostgresRepository)(nil)

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresRepository wires a pgx connection pool; table defaults to "reviews".
func NewPostgresRepository(db Querier, table string) *PostgresRepository {
	if table == "" {
		table = "reviews"
	}
	return &PostgresRepository{
		db:      db,
		table:   pgx.Identifier{table}.Sanitize(),
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:     time.Now,
	}
}

// EnsureTable creates the reviews table when it does not exist yet.
func (r *PostgresRepository) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		review_id       TEXT PRIMARY KEY,
		app_name        TEXT NOT NULL,
		review_text     TEXT NOT NULL DEFAULT '',
		rating          TEXT NOT NULL,
		analysis_status TEXT NOT NULL,
		sentiment       TEXT NULL,
		sentiment_score JSONB NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, r.table)

	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	return nil
}

// Upsert inserts a PENDING record; on conflict only descriptive fields change,
// so a COMPLETED record never regresses. The stored row comes back from the
// same statement.
func (r *PostgresRepository) Upsert(ctx context.Context, record domain.ReviewRecord) (domain.ReviewRecord, bool, error) {
	query, args, err := r.upsertQuery(record)
	if err != nil {
		return domain.ReviewRecord{}, false, fmt.Errorf("build upsert: %w", err)
	}

	var inserted bool
	stored, err := scanRecord(r.db.QueryRow(ctx, query, args...), &inserted)
	if err != nil {
		return domain.ReviewRecord{}, false, fmt.Errorf("upsert review %s: %w", record.ID, err)
	}

	return stored, inserted, nil
}

// CompletePending performs the single conditional PENDING -> COMPLETED write.
func (r *PostgresRepository) CompletePending(ctx context.Context, id string, s domain.Sentiment) (domain.ReviewRecord, error) {
	query, args, err := r.completeQuery(id, s)
	if err != nil {
		return domain.ReviewRecord{}, fmt.Errorf("build complete: %w", err)
	}

	rec, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ReviewRecord{}, fmt.Errorf("complete review %s: %w", id, err)
	}

	// No row matched: either the key is unknown or the record is already COMPLETED.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return domain.ReviewRecord{}, getErr
	}
	return domain.ReviewRecord{}, domain.ErrAlreadyCompleted
}

// Get loads a single review by key.
func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.ReviewRecord, error) {
	query, args, err := r.builder.
		Select(recordColumns...).
		From(r.table).
		Where(sq.Eq{"review_id": id}).
		ToSql()
	if err != nil {
		return domain.ReviewRecord{}, fmt.Errorf("build get: %w", err)
	}

	rec, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReviewRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ReviewRecord{}, fmt.Errorf("get review %s: %w", id, err)
	}
	return rec, nil
}

// ListCompleted pages through COMPLETED reviews ordered by key.
func (r *PostgresRepository) ListCompleted(ctx context.Context, afterID string, limit int) ([]domain.ReviewRecord, error) {
	query, args, err := r.listCompletedQuery(afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	return r.queryRecords(ctx, "completed", query, args)
}

// ListPending pages through PENDING reviews untouched since updatedBefore.
func (r *PostgresRepository) ListPending(ctx context.Context, afterID string, updatedBefore time.Time, limit int) ([]domain.ReviewRecord, error) {
	query, args, err := r.listPendingQuery(afterID, updatedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	return r.queryRecords(ctx, "pending", query, args)
}

func (r *PostgresRepository) queryRecords(ctx context.Context, what, query string, args []any) ([]domain.ReviewRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	var result []domain.ReviewRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) upsertQuery(record domain.ReviewRecord) (string, []any, error) {
	now := r.now().UTC()
	return r.builder.
		Insert(r.table).
		Columns("review_id", "app_name", "review_text", "rating", "analysis_status", "created_at", "updated_at").
		Values(record.ID, record.AppName, record.Text, record.Rating, string(domain.StatusPending), now, now).
		Suffix(`ON CONFLICT (review_id) DO UPDATE
              SET app_name = EXCLUDED.app_name,
                  review_text = EXCLUDED.review_text,
                  rating = EXCLUDED.rating,
                  updated_at = EXCLUDED.updated_at
              RETURNING ` + strings.Join(recordColumns, ", ") + `, (xmax = 0) AS inserted`).
		ToSql()
}

func (r *PostgresRepository) completeQuery(id string, s domain.Sentiment) (string, []any, error) {
	scores, err := json.Marshal(s.Scores)
	if err != nil {
		return "", nil, fmt.Errorf("marshal scores: %w", err)
	}
	return r.builder.
		Update(r.table).
		Set("analysis_status", string(domain.StatusCompleted)).
		Set("sentiment", string(s.Label)).
		Set("sentiment_score", string(scores)).
		Set("updated_at", r.now().UTC()).
		Where(sq.Eq{"review_id": id}).
		Where(sq.NotEq{"analysis_status": string(domain.StatusCompleted)}).
		Suffix("RETURNING " + strings.Join(recordColumns, ", ")).
		ToSql()
}

func (r *PostgresRepository) listCompletedQuery(afterID string, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.builder.
		Select(recordColumns...).
		From(r.table).
		Where(sq.Eq{"analysis_status": string(domain.StatusCompleted)}).
		Where(sq.Gt{"review_id": afterID}).
		OrderBy("review_id").
		Limit(uint64(limit)).
		ToSql()
}

func (r *PostgresRepository) listPendingQuery(afterID string, updatedBefore time.Time, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.builder.
		Select(recordColumns...).
		From(r.table).
		Where(sq.Eq{"analysis_status": string(domain.StatusPending)}).
		Where(sq.Lt{"updated_at": updatedBefore.UTC()}).
		Where(sq.Gt{"review_id": afterID}).
		OrderBy("review_id").
		Limit(uint64(limit)).
		ToSql()
}

// scanRecord reads recordColumns in order, followed by any extra targets.
func scanRecord(row pgx.Row, extra ...any) (domain.ReviewRecord, error) {
	var (
		rec       domain.ReviewRecord
		status    string
		label     *string
		scoreJSON []byte
	)
	dest := append([]any{
		&rec.ID,
		&rec.AppName,
		&rec.Text,
		&rec.Rating,
		&status,
		&label,
		&scoreJSON,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.ReviewRecord{}, err
	}

	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.ReviewRecord{}, err
	}
	rec.Status = parsed

	if parsed == domain.StatusCompleted && label != nil && len(scoreJSON) > 0 {
		var scores domain.Scores
		if err := json.Unmarshal(scoreJSON, &scores); err != nil {
			return domain.ReviewRecord{}, fmt.Errorf("decode sentiment_score: %w", err)
		}
		rec.Sentiment = &domain.Sentiment{Label: domain.Label(*label), Scores: scores}
	}

	return rec, nil
}
