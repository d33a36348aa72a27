// Package migrate applies the embedded Postgres schema for the postgres result backend.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockKey serializes concurrent starters that all have RUN_MIGRATIONS_ON_START enabled.
const lockKey int64 = 0x5375727665 // "Surve"

// Migrator applies *.sql files in lexical order and records each version in schema_migrations.
type Migrator struct {
	db     *sql.DB
	logger *slog.Logger
	files  fs.FS
}

// New returns a Migrator over the embedded migrations. A nil logger uses slog.Default.
func New(db *sql.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, logger: logger.With("component", "migrations"), files: migrationsFS}
}

// Run applies every pending migration.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := New(db, nil).Apply(ctx)
	return err
}

// Versions lists the embedded migration versions in apply order.
func (m *Migrator) Versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".sql"); ok && !e.IsDir() {
			versions = append(versions, name)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// Pending reports versions not yet recorded in schema_migrations.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := ensureVersionTable(ctx, conn); err != nil {
		return nil, err
	}
	return m.pending(ctx, conn)
}

// Apply runs pending migrations under a session advisory lock and returns the versions it applied.
func (m *Migrator) Apply(ctx context.Context) ([]string, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		// The lock is session scoped; use a fresh context so a cancelled ctx still releases it.
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, lockKey); err != nil {
			m.logger.Warn("release migration lock", "error", err)
		}
	}()

	if err := ensureVersionTable(ctx, conn); err != nil {
		return nil, err
	}
	pending, err := m.pending(ctx, conn)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	for _, version := range pending {
		if err := m.apply(ctx, conn, version); err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	if len(applied) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
	}
	return applied, nil
}

func ensureVersionTable(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) pending(ctx context.Context, conn *sql.Conn) ([]string, error) {
	versions, err := m.Versions()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	done := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		done[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	return slices.DeleteFunc(versions, func(v string) bool {
		_, ok := done[v]
		return ok
	}), nil
}

func (m *Migrator) apply(ctx context.Context, conn *sql.Conn, version string) error {
	body, err := fs.ReadFile(m.files, path.Join("migrations", version+".sql"))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	m.logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.logger.ErrorContext(ctx, "rollback migration", "version", version, "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("exec migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
