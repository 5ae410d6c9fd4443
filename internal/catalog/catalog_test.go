package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCatalog_ReadVerbatim(t *testing.T) {
	// Deliberately not valid JSON: the catalog never parses what it serves.
	content := "{\n  \"food\": [\"groceries\",\n  trailing garbage"
	c := New(writeCatalog(t, content), time.Minute)

	got, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestCatalog_CachesReads(t *testing.T) {
	path := writeCatalog(t, `{"food":[]}`)
	c := New(path, time.Hour)
	ctx := context.Background()

	first, err := c.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"rent":[]}`), 0644))
	second, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached copy served until the TTL elapses")

	c.cache.Delete(path)
	third, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"rent":[]}`, string(third))
}

func TestCatalog_MissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope.json"), 0)
	_, err := c.Read(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCatalog_Defaults(t *testing.T) {
	c := New("", 0)
	assert.NotEmpty(t, c.Path())
	assert.Equal(t, FileName, filepath.Base(c.Path()))
	assert.NotNil(t, c.Cache())
}
