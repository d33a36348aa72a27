package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/model"
	apperrors "github.com/target/surveystats/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS job_results (
	job_id     INTEGER PRIMARY KEY,
	result     BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteResultStore keeps artifacts in a local SQLite database file.
type SQLiteResultStore struct {
	db *sql.DB
}

// OpenSQLiteResultStore opens (or creates) the database at path and ensures the schema.
func OpenSQLiteResultStore(ctx context.Context, path string) (*SQLiteResultStore, error) {
	if path == "" {
		return nil, ErrResultStoreNotConfigured
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create job_results table: %w", err)
	}
	return &SQLiteResultStore{db: db}, nil
}

// Write upserts the artifact for id.
func (s *SQLiteResultStore) Write(ctx context.Context, id int64, artifact []byte) error {
	if err := validateJobID(id); err != nil {
		return err
	}
	const query = `
		INSERT INTO job_results (job_id, result) VALUES (?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			result = excluded.result,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, id, artifact); err != nil {
		return fmt.Errorf("upsert job_results: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Read returns the artifact for id.
func (s *SQLiteResultStore) Read(ctx context.Context, id int64) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM job_results WHERE job_id = ?`, id).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job_results: %w", apperrors.MapDBError(err))
	}
	return b, nil
}

// LastJobID returns the highest stored job id, or 0 for an empty table.
func (s *SQLiteResultStore) LastJobID(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(job_id), 0) FROM job_results`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("max job_results: %w", apperrors.MapDBError(err))
	}
	return last, nil
}

// Health pings the database file.
func (s *SQLiteResultStore) Health(ctx context.Context) error {
	return apperrors.MapDBError(s.db.PingContext(ctx))
}

// Close releases the database handle.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

var (
	_ core.ResultStore   = (*SQLiteResultStore)(nil)
	_ core.ResultCatalog = (*SQLiteResultStore)(nil)
	_ core.HealthChecker = (*SQLiteResultStore)(nil)
)
