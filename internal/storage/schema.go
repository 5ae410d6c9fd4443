package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// DefaultBusyTimeout bounds how long a call waits on a locked store before
// failing with ErrStorageContention.
const DefaultBusyTimeout = 3 * time.Second

// CheckPath rejects database locations the driver would not open as a single
// shared file: in-memory databases, URI filenames and paths carrying the DSN
// delimiters.
func CheckPath(path string) error {
	switch {
	case path == "":
		return errors.New("database path is empty")
	case path == ":memory:" || strings.HasPrefix(path, "file:"):
		return fmt.Errorf("database path %q must name a file on disk", path)
	case strings.ContainsAny(path, "?#"):
		return fmt.Errorf("database path %q must not contain '?' or '#'", path)
	}
	return nil
}

// dsn builds the modernc.org/sqlite data source name. busy_timeout is a
// per-connection setting, so it rides on the DSN and every pooled connection
// gets it when opened.
func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	return path + "?" + q.Encode()
}

// createSchema applies the pragmas and the table definition on a single
// connection. journal_mode=WAL is stored in the database file itself, so it only
// has to be set once per file.
func createSchema(ctx context.Context, db *sql.DB, busyTimeout time.Duration) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create expenses table: %w", err)
	}
	return nil
}
