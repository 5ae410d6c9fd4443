// Package catalog serves the category document that clients use to pick
// categories and subcategories for new expenses.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"expensetracker/internal/cache"
	applog "expensetracker/internal/log"
)

const (
	// FileName is the catalog document looked up when no path is configured.
	FileName = "categories.json"
	// MIMEType is the content type the document is served with.
	MIMEType = "application/json"
	// DefaultTTL is how long a read stays cached.
	DefaultTTL = time.Minute
)

// Catalog returns the bytes of a JSON document as they are on disk. It never
// parses the document.
type Catalog struct {
	path  string
	cache *cache.LRUCache[[]byte]
}

// New returns a catalog for the document at path. An empty path resolves via
// DefaultPath. A ttl of zero or less uses DefaultTTL.
func New(path string, ttl time.Duration) *Catalog {
	if path == "" {
		path = DefaultPath()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		path:  path,
		cache: cache.NewLRUCache[[]byte](1, ttl),
	}
}

// DefaultPath prefers categories.json next to the running executable and
// falls back to the working directory.
func DefaultPath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return FileName
}

func (c *Catalog) Path() string {
	return c.path
}

// Cache exposes the read cache so a cache.Manager can purge it.
func (c *Catalog) Cache() cache.Cleaner {
	return c.cache
}

// Read returns the document verbatim.
func (c *Catalog) Read(ctx context.Context) ([]byte, error) {
	if data, ok := c.cache.Get(c.path); ok {
		return data, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read category catalog",
			applog.FieldComponent, applog.ComponentCatalog,
			applog.FieldOperation, applog.OpLoad,
			"path", c.path,
			applog.FieldError, err)
		return nil, fmt.Errorf("read category catalog: %w", err)
	}

	c.cache.Set(c.path, data)
	return data, nil
}
