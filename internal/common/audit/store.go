package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"mongodb-connector/internal/common/logger"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS connector_runs (
	id UUID PRIMARY KEY,
	operation TEXT NOT NULL,
	dataset_id TEXT,
	collection TEXT NOT NULL,
	item_id TEXT,
	status TEXT NOT NULL,
	item_count INTEGER NOT NULL DEFAULT 0,
	error_code TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

const insertRun = `INSERT INTO connector_runs
	(id, operation, dataset_id, collection, item_id, status, item_count, error_code, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Store writes run records to PostgreSQL.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{db: db, logger: log}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create connector_runs: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, insertRun,
		run.ID.String(),
		run.Operation,
		nullString(run.DatasetID),
		run.Collection,
		nullString(run.ItemID),
		string(run.Status),
		run.ItemCount,
		nullString(run.ErrorCode),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Report records run and logs, rather than returns, any failure.
func (s *Store) Report(ctx context.Context, run Run) {
	if err := s.Record(ctx, run); err != nil {
		s.logger.Warn("Failed to record connector run", map[string]interface{}{
			"runId":     run.ID.String(),
			"operation": run.Operation,
			"error":     err.Error(),
		})
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
