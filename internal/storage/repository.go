package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"

	_ "modernc.org/sqlite"
)

// Options tunes the connection pool behind a SQLiteRepository.
type Options struct {
	// BusyTimeout is how long a statement waits on a locked store.
	BusyTimeout time.Duration
	// MaxOpenConns caps the pool; zero leaves database/sql's default.
	MaxOpenConns int
}

// SQLiteRepository is the only component that talks to the expenses file. Every
// operation makes sure the schema exists, borrows one connection from the pool,
// runs a single statement and hands the connection back before returning.
type SQLiteRepository struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	init        *Initializer
}

// NewSQLiteRepository prepares a repository for the database at dbPath. The
// file itself is not touched until the first operation.
func NewSQLiteRepository(dbPath string, opts Options) (*SQLiteRepository, error) {
	if err := CheckPath(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInitialization, err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	db, err := sql.Open("sqlite", dsn(dbPath, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	return &SQLiteRepository{
		db:          db,
		path:        dbPath,
		busyTimeout: busyTimeout,
		init:        initializerFor(dbPath),
	}, nil
}

// Path returns the database file location.
func (r *SQLiteRepository) Path() string {
	return r.path
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureReady creates the expenses table and applies the store pragmas the
// first time it is called for this file in this process. It is safe to call
// before every operation.
func (r *SQLiteRepository) EnsureReady(ctx context.Context) error {
	return r.init.Do(ctx, func(ctx context.Context) error {
		if err := createSchema(ctx, r.db, r.busyTimeout); err != nil {
			slog.ErrorContext(ctx, "Schema initialization failed",
				applog.FieldComponent, applog.ComponentStorage,
				applog.FieldDBPath, r.path,
				applog.FieldError, err)
			return fmt.Errorf("%w: %w", core.ErrInitialization, classify(err))
		}
		slog.InfoContext(ctx, "Schema initialized",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldDBPath, r.path)
		return nil
	})
}

// Ping verifies the store is initialized and reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.EnsureReady(ctx); err != nil {
		return err
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", classify(err))
	}
	return nil
}

// Insert appends one expense and returns the id the store assigned to it.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (int64, error) {
	if err := r.EnsureReady(ctx); err != nil {
		return 0, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", classify(err))
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, insertExpenseSQL, e.Date, e.Amount, e.Category, e.Subcategory, e.Note)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", classify(err))
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		applog.NewFields().
			WithComponent(applog.ComponentStorage).
			WithOperation(applog.OpInsert).
			WithExpense(id, e.Date, e.Amount, e.Category, e.Subcategory).
			ToSlice()...)

	return id, nil
}

// ListInRange returns the expenses whose date lies in [startDate, endDate]
// under string comparison, in insertion order. The result is never nil.
func (r *SQLiteRepository) ListInRange(ctx context.Context, startDate, endDate string) ([]core.Expense, error) {
	if err := r.EnsureReady(ctx); err != nil {
		return nil, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", classify(err))
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, listExpensesSQL, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", classify(err))
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Subcategory, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", classify(err))
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", classify(err))
	}

	return expenses, nil
}

// Summarize totals amounts per category over [startDate, endDate], sorted by
// category. A non-empty category restricts the result to that category.
func (r *SQLiteRepository) Summarize(ctx context.Context, startDate, endDate, category string) ([]core.CategoryTotal, error) {
	if err := r.EnsureReady(ctx); err != nil {
		return nil, err
	}

	query, args := buildSummaryQuery(startDate, endDate, category)

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", classify(err))
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", classify(err))
	}
	defer rows.Close()

	totals := make([]core.CategoryTotal, 0)
	for rows.Next() {
		var t core.CategoryTotal
		if err := rows.Scan(&t.Category, &t.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", classify(err))
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", classify(err))
	}

	return totals, nil
}
