package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the store can be tested against pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateRuns = `CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL DEFAULT '',
	total            INTEGER NOT NULL,
	solved           INTEGER NOT NULL,
	failed           INTEGER NOT NULL,
	total_time_ms    BIGINT NOT NULL,
	stop_reason      TEXT NOT NULL DEFAULT '',
	estimated_tokens BIGINT NOT NULL,
	estimated_cost   TEXT NOT NULL,
	summary          JSONB NOT NULL,
	completed_at     TIMESTAMPTZ NOT NULL
)`
	sqlCreateRecords = `CREATE TABLE IF NOT EXISTS challenge_records (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ordinal     INTEGER NOT NULL,
	strategy    TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	succeeded   BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, ordinal)
)`
	sqlInsertRun = `INSERT INTO runs (id, url, total, solved, failed, total_time_ms, stop_reason, estimated_tokens, estimated_cost, summary, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	sqlInsertRecord = `INSERT INTO challenge_records (run_id, ordinal, strategy, duration_ms, succeeded)
VALUES ($1, $2, $3, $4, $5)`
	sqlListRuns = `SELECT id, url, total, solved, failed, total_time_ms, stop_reason, completed_at
FROM runs ORDER BY completed_at DESC LIMIT $1`
)

// Store persists run summaries in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.SummarySink = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateRuns, sqlCreateRecords} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Publish stores the run and its records in a single transaction.
func (s *Store) Publish(ctx context.Context, summary *schemas.RunSummary) (err error) {
	doc, err := json.ConfigCompatibleWithStandardLibrary.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	stats := summary.Summary
	if _, err := tx.Exec(ctx, sqlInsertRun,
		summary.RunID, summary.URL,
		stats.Total, stats.Solved, stats.Failed, stats.TotalTimeMs,
		string(summary.StopReason),
		summary.Performance.EstimatedTokens, summary.Performance.EstimatedCost,
		string(doc), summary.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}

	for _, rec := range summary.Challenges {
		if _, err := tx.Exec(ctx, sqlInsertRecord,
			summary.RunID, rec.Ordinal, rec.Strategy.String(), rec.DurationMillis, rec.Succeeded,
		); err != nil {
			return fmt.Errorf("failed to insert record %d of run %s: %w", rec.Ordinal, summary.RunID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	s.log.Info("Run persisted.", zap.String("run_id", summary.RunID), zap.Int("records", len(summary.Challenges)))
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]schemas.RunHistory, error) {
	if limit <= 0 {
		return []schemas.RunHistory{}, nil
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	history := []schemas.RunHistory{}
	for rows.Next() {
		var h schemas.RunHistory
		if err := rows.Scan(&h.RunID, &h.URL, &h.Total, &h.Solved, &h.Failed, &h.TotalTimeMs, &h.StopReason, &h.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return history, nil
}
