package storage

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
)

// classify wraps a store error with the core category it belongs to. Errors
// that fit no category are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if category := categoryOf(err); category != nil {
		if errors.Is(err, category) {
			return err
		}
		return fmt.Errorf("%w: %w", category, err)
	}
	return err
}

// categoryOf maps a driver error onto the storage failure taxonomy using the
// SQLite primary result code (the low byte of an extended code).
func categoryOf(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return categoryForCode(sqliteErr.Code())
	}
	// database/sql rejects unsupported argument types before reaching the driver.
	if strings.Contains(err.Error(), "sql: converting argument") {
		return core.ErrMalformedInput
	}
	return nil
}

func categoryForCode(code int) error {
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return core.ErrStorageContention
	case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_FULL,
		sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY,
		sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_NOLFS:
		return core.ErrStorageIO
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_TOOBIG,
		sqlite3.SQLITE_RANGE:
		return core.ErrMalformedInput
	default:
		return nil
	}
}
