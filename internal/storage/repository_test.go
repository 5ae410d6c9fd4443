package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T, opts Options) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := NewSQLiteRepository(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedScenario inserts the three reference expenses and returns their ids.
func seedScenario(t *testing.T, repo *SQLiteRepository) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for _, e := range []core.Expense{
		core.NewExpense("2024-01-05", 12.50, "food"),
		core.NewExpense("2024-01-10", 7.25, "food", "snacks"),
		core.NewExpense("2024-02-01", 100.0, "rent"),
	} {
		id, err := repo.Insert(ctx, e)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestNewSQLiteRepository_DoesNotTouchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(path, Options{})
	require.NoError(t, err)
	defer repo.Close()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "database file must be created lazily")

	require.NoError(t, repo.EnsureReady(context.Background()))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewSQLiteRepository_RejectsNonFilePaths(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{
		"",
		":memory:",
		"file:expenses.db?mode=memory",
		filepath.Join(dir, "a?b.db"),
		filepath.Join(dir, "a#b.db"),
	} {
		t.Run(path, func(t *testing.T) {
			_, err := NewSQLiteRepository(path, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInitialization)
		})
	}

	require.NoError(t, CheckPath(filepath.Join(dir, "expenses.db")))
}

func TestRepository_Scenario(t *testing.T) {
	repo := newTestRepo(t, Options{})
	ctx := context.Background()

	ids := seedScenario(t, repo)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	listed, err := repo.ListInRange(ctx, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, []core.Expense{
		{ID: 1, Date: "2024-01-05", Amount: 12.50, Category: "food"},
		{ID: 2, Date: "2024-01-10", Amount: 7.25, Category: "food", Subcategory: "snacks"},
	}, listed)

	totals, err := repo.Summarize(ctx, "2024-01-01", "2024-02-28", "")
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{
		{Category: "food", TotalAmount: 19.75},
		{Category: "rent", TotalAmount: 100.0},
	}, totals)

	totals, err = repo.Summarize(ctx, "2024-01-01", "2024-02-28", "rent")
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{{Category: "rent", TotalAmount: 100.0}}, totals)
}

func TestRepository_InsertIDsIncrease(t *testing.T) {
	repo := newTestRepo(t, Options{})
	ctx := context.Background()

	var last int64
	for i := 0; i < 20; i++ {
		id, err := repo.Insert(ctx, core.NewExpense("2024-03-01", float64(i), "misc"))
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestRepository_ListInRange(t *testing.T) {
	repo := newTestRepo(t, Options{})
	ctx := context.Background()

	for _, e := range []core.Expense{
		core.NewExpense("2024-01-31", 1, "a"),
		core.NewExpense("2024-01-01", 2, "b"),
		core.NewExpense("2024-02-01", 3, "c"),
		core.NewExpense("2023-12-31", 4, "d"),
		core.NewExpense("2024-1-15", 5, "e"),
		core.NewExpense("2024-01-01", 6, "f", "", "same day as b"),
	} {
		_, err := repo.Insert(ctx, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		start    string
		end      string
		wantCats []string
	}{
		{"inclusive bounds in id order", "2024-01-01", "2024-01-31", []string{"a", "b", "f"}},
		{"single day", "2024-01-01", "2024-01-01", []string{"b", "f"}},
		{"lexicographic not calendar", "2024-1-01", "2024-1-31", []string{"e"}},
		{"inverted range is empty", "2024-02-01", "2024-01-01", []string{}},
		{"no matches", "2030-01-01", "2030-12-31", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListInRange(ctx, tt.start, tt.end)
			require.NoError(t, err)
			require.NotNil(t, got, "result must never be nil")

			cats := make([]string, 0, len(got))
			for i, e := range got {
				cats = append(cats, e.Category)
				if i > 0 {
					assert.Greater(t, e.ID, got[i-1].ID)
				}
				assert.GreaterOrEqual(t, e.Date, tt.start)
				assert.LessOrEqual(t, e.Date, tt.end)
			}
			assert.Equal(t, tt.wantCats, cats)
		})
	}
}

func TestRepository_Summarize(t *testing.T) {
	repo := newTestRepo(t, Options{})
	ctx := context.Background()
	seedScenario(t, repo)

	_, err := repo.Insert(ctx, core.NewExpense("2024-01-20", 30, "books"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, core.NewExpense("2024-03-01", 999, "food"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		category string
		want     []core.CategoryTotal
	}{
		{
			name: "all categories sorted by name",
			want: []core.CategoryTotal{
				{Category: "books", TotalAmount: 30},
				{Category: "food", TotalAmount: 19.75},
				{Category: "rent", TotalAmount: 100},
			},
		},
		{
			name:     "single category",
			category: "food",
			want:     []core.CategoryTotal{{Category: "food", TotalAmount: 19.75}},
		},
		{
			name:     "unknown category",
			category: "travel",
			want:     []core.CategoryTotal{},
		},
		{
			name:     "category text is never part of the statement",
			category: "rent' OR '1'='1",
			want:     []core.CategoryTotal{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Summarize(ctx, "2024-01-01", "2024-02-28", tt.category)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepository_ConcurrentFirstUse(t *testing.T) {
	repo := newTestRepo(t, Options{MaxOpenConns: 8})
	ctx := context.Background()

	const workers = 32
	ids := make([]int64, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			switch i % 3 {
			case 0:
				_, err := repo.ListInRange(ctx, "2024-01-01", "2024-12-31")
				return err
			case 1:
				_, err := repo.Summarize(ctx, "2024-01-01", "2024-12-31", "")
				return err
			default:
				id, err := repo.Insert(ctx, core.NewExpense("2024-06-01", 1, "load"))
				ids[i] = id
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	seen := map[int64]bool{}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}

	var tables int
	err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 1, tables)

	totals, err := repo.Summarize(ctx, "2024-01-01", "2024-12-31", "load")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, float64(len(seen)), totals[0].TotalAmount)
}

func TestRepository_SharesInitializerAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")

	first, err := NewSQLiteRepository(path, Options{})
	require.NoError(t, err)
	defer first.Close()
	second, err := NewSQLiteRepository(path, Options{})
	require.NoError(t, err)
	defer second.Close()

	assert.Same(t, first.init, second.init)

	_, err = first.Insert(context.Background(), core.NewExpense("2024-01-01", 1, "x"))
	require.NoError(t, err)
	assert.True(t, second.init.Ready())

	got, err := second.ListInRange(context.Background(), "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRepository_WALEnabled(t *testing.T) {
	repo := newTestRepo(t, Options{})
	require.NoError(t, repo.EnsureReady(context.Background()))

	var mode string
	require.NoError(t, repo.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))
}

func TestRepository_LockContention(t *testing.T) {
	repo := newTestRepo(t, Options{BusyTimeout: 100 * time.Millisecond})
	ctx := context.Background()
	seedScenario(t, repo)

	other, err := sql.Open("sqlite", repo.Path())
	require.NoError(t, err)
	defer other.Close()

	tx, err := other.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO expenses(date, amount, category) VALUES ('2024-01-02', 5, 'held')`)
	require.NoError(t, err)

	start := time.Now()
	_, err = repo.Insert(ctx, core.NewExpense("2024-01-03", 1, "blocked"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageContention)
	assert.True(t, core.IsTransient(err))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "writer must wait for the lock before failing")

	// Readers are not blocked by the pending write.
	listed, err := repo.ListInRange(ctx, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, tx.Rollback())
	_, err = repo.Insert(ctx, core.NewExpense("2024-01-03", 1, "unblocked"))
	assert.NoError(t, err)
}

func TestRepository_InitializationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	garbage := []byte(strings.Repeat("this is not a sqlite database ", 200))
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	repo, err := NewSQLiteRepository(path, Options{})
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Insert(context.Background(), core.NewExpense("2024-01-01", 1, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInitialization)
	assert.ErrorIs(t, err, core.ErrStorageIO)
	assert.False(t, repo.init.Ready())

	_, err = repo.ListInRange(context.Background(), "2024-01-01", "2024-12-31")
	assert.ErrorIs(t, err, core.ErrInitialization, "initialization is attempted again on the next call")
}

func TestRepository_Ping(t *testing.T) {
	repo := newTestRepo(t, Options{})
	assert.NoError(t, repo.Ping(context.Background()))
	assert.True(t, repo.init.Ready())
}
