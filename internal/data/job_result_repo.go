package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/data/pgxutil"
	"github.com/target/surveystats/internal/domain/model"
	apperrors "github.com/target/surveystats/internal/errors"
)

// JobResultRepo persists artifacts in the Postgres job_results table.
type JobResultRepo struct {
	DB *sql.DB
}

// NewJobResultRepo constructs a JobResultRepo.
func NewJobResultRepo(db *sql.DB) *JobResultRepo {
	return &JobResultRepo{DB: db}
}

// Write upserts the artifact for id.
func (r *JobResultRepo) Write(ctx context.Context, id int64, artifact []byte) error {
	if r == nil || r.DB == nil {
		return ErrResultStoreNotConfigured
	}
	if err := validateJobID(id); err != nil {
		return err
	}
	const query = `
		INSERT INTO job_results (job_id, result, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (job_id)
		DO UPDATE SET
			result = EXCLUDED.result,
			updated_at = now();`
	if _, err := r.DB.ExecContext(ctx, query, id, artifact); err != nil {
		return fmt.Errorf("upsert job_results: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Read returns the artifact bytes for id.
func (r *JobResultRepo) Read(ctx context.Context, id int64) ([]byte, error) {
	res, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// Get retrieves the full job_results row for id.
func (r *JobResultRepo) Get(ctx context.Context, id int64) (*model.JobResult, error) {
	if r == nil || r.DB == nil {
		return nil, ErrResultStoreNotConfigured
	}

	const query = `
		SELECT job_id, result, created_at, updated_at
		FROM job_results
		WHERE job_id = $1`

	var res *model.JobResult
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobResult])
		if err != nil {
			return err
		}
		res = &result
		return nil
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job_results: %w", err)
	}
	return res, nil
}

// ListRange returns stored rows with from <= job_id <= to, ordered by job_id.
func (r *JobResultRepo) ListRange(ctx context.Context, from, to int64) ([]*model.JobResult, error) {
	if r == nil || r.DB == nil {
		return nil, ErrResultStoreNotConfigured
	}

	const query = `
		SELECT job_id, result, created_at, updated_at
		FROM job_results
		WHERE job_id BETWEEN $1 AND $2
		ORDER BY job_id ASC`

	var out []*model.JobResult
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.JobResult])
		if err != nil {
			return err
		}
		for i := range collected {
			row := collected[i]
			out = append(out, &row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list job_results: %w", err)
	}
	return out, nil
}

// LastJobID returns the highest stored job id, or 0 for an empty table.
func (r *JobResultRepo) LastJobID(ctx context.Context) (int64, error) {
	if r == nil || r.DB == nil {
		return 0, ErrResultStoreNotConfigured
	}
	var last int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(job_id), 0) FROM job_results`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("max job_results: %w", apperrors.MapDBError(err))
	}
	return last, nil
}

// Health pings the database.
func (r *JobResultRepo) Health(ctx context.Context) error {
	if r == nil || r.DB == nil {
		return ErrResultStoreNotConfigured
	}
	return apperrors.MapDBError(r.DB.PingContext(ctx))
}

var (
	_ core.ResultStore   = (*JobResultRepo)(nil)
	_ core.ResultCatalog = (*JobResultRepo)(nil)
	_ core.HealthChecker = (*JobResultRepo)(nil)
)
