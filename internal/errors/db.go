package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// reKeyField extracts the column from "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

const (
	msgTimeout     = "Database operation timed out."
	msgCanceled    = "Database operation was canceled."
	msgNotFound    = "Resource not found"
	msgConflict    = "This value already exists."
	msgInvalid     = "Invalid data. Please check your input."
	msgUnavailable = "Database is unavailable."
	msgInternal    = "A database error occurred. Please try again."
)

// MapDBError categorizes errors from the Postgres and SQLite result stores:
//   - context deadline/cancel → Timeout/Canceled
//   - no rows → NotFound
//   - unique and primary key violations → Conflict
//   - check and NOT NULL violations → Validation
//   - lost connections, shutdowns, lock contention and full disks → Unavailable
//
// Other driver errors become Internal. Errors from neither driver are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, msgTimeout)
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, msgCanceled)
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, msgNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return mapSQLiteError(liteErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	code := pgErr.Code
	switch {
	case code == pgerrcode.UniqueViolation:
		return &AppError{Code: ErrCodeConflict, Message: msgConflict, Field: violatingColumn(pgErr), Cause: pgErr}
	case code == pgerrcode.CheckViolation, code == pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: msgInvalid, Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsOperatorIntervention(code),
		pgerrcode.IsInsufficientResources(code),
		code == pgerrcode.SerializationFailure,
		code == pgerrcode.DeadlockDetected:
		return Wrap(pgErr, ErrCodeUnavailable, msgUnavailable)
	default:
		return Wrap(pgErr, ErrCodeInternal, msgInternal)
	}
}

func mapSQLiteError(liteErr *sqlite.Error) error {
	code := liteErr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return Wrap(liteErr, ErrCodeConflict, msgConflict)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return Wrap(liteErr, ErrCodeValidation, msgInvalid)
	}
	// Extended codes keep the primary code in the low byte.
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return Wrap(liteErr, ErrCodeValidation, msgInvalid)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_FULL:
		return Wrap(liteErr, ErrCodeUnavailable, msgUnavailable)
	default:
		return Wrap(liteErr, ErrCodeInternal, msgInternal)
	}
}

func violatingColumn(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}
