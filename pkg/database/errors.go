package database

import (
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// IsBusyError checks if the error is a SQLite BUSY or LOCKED error, or a
// Postgres serialization/lock failure. Works with both mattn/go-sqlite3 and
// modernc.org/sqlite drivers.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgErr.Code == pgerrcode.LockNotAvailable
	}

	errStr := err.Error()
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "SQLITE_LOCKED") ||
		strings.Contains(errStr, "(5)") || // SQLITE_BUSY error code
		strings.Contains(errStr, "(6)") // SQLITE_LOCKED error code
}

// IsUniqueViolation reports whether err was caused by a unique constraint or
// unique index. When index is non-empty, a Postgres error must name that
// constraint; SQLite messages don't carry index names and only report columns.
func IsUniqueViolation(err error, index string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgerrcode.UniqueViolation {
			return false
		}
		return index == "" || pgErr.ConstraintName == index
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
