package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

// run executes the root command and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AMQP_URL", "MCP_TRANSPORT", "LOG_LEVEL", "PORT", "SQLITE_MAX_OPEN_CONNS", "SQLITE_BUSY_TIMEOUT", "RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(key, "")
	}
}

func TestCLI_AddListSummarize(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")

	for _, args := range [][]string{
		{"--amount", "12.50", "--date", "2024-01-05", "--category", "food"},
		{"--amount", "7.25", "--date", "2024-01-10", "--category", "food", "--subcategory", "snacks"},
		{"--amount", "100", "--date", "2024-02-01", "--category", "rent", "--note", "february"},
	} {
		out, err := run(t, append([]string{"--db", db, "add"}, args...)...)
		require.NoError(t, err)

		var res core.InsertResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, "ok", res.Status)
	}

	out, err := run(t, "--db", db, "list", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	var listed []core.Expense
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "snacks", listed[1].Subcategory)

	out, err = run(t, "--db", db, "summarize", "--from", "2024-01-01", "--to", "2024-02-28")
	require.NoError(t, err)
	var totals []core.CategoryTotal
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Equal(t, []core.CategoryTotal{
		{Category: "food", TotalAmount: 19.75},
		{Category: "rent", TotalAmount: 100},
	}, totals)

	out, err = run(t, "--db", db, "summarize", "--from", "2024-01-01", "--to", "2024-02-28", "--category", "rent")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Equal(t, []core.CategoryTotal{{Category: "rent", TotalAmount: 100}}, totals)
}

func TestCLI_ListEmptyPrintsArray(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")

	out, err := run(t, "--db", db, "list", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestCLI_RequiredFlags(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")

	_, err := run(t, "--db", db, "add", "--date", "2024-01-01", "--category", "food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")

	_, err = run(t, "--db", db, "list", "--from", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to")
}

func TestCLI_Categories(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "categories.json")
	content := `{"categories": {"food": ["snacks"]}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CATEGORIES_PATH", path)

	out, err := run(t, "--db", filepath.Join(t.TempDir(), "expenses.db"), "categories")
	require.NoError(t, err)
	assert.Equal(t, content, out)
}

func TestCLI_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := run(t, "--db", filepath.Join(t.TempDir(), "expenses.db"), "list", "--from", "a", "--to", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestCLI_TransportFlagOverridesEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MCP_TRANSPORT", "carrier-pigeon")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "expenses.db"))

	root := NewRootCommand()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)

	require.NoError(t, serve.ParseFlags([]string{"--transport", "stdio"}))
	require.NoError(t, root.PersistentPreRunE(serve, nil))

	root = NewRootCommand()
	serve, _, err = root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags(nil))
	err = root.PersistentPreRunE(serve, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transport")
}

func TestCLI_LogLevelFlagOverridesEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOG_LEVEL", "shouting")

	_, err := run(t, "--db", filepath.Join(t.TempDir(), "expenses.db"), "--log-level", "debug",
		"list", "--from", "2024-01-01", "--to", "2024-01-02")
	assert.NoError(t, err)
}
