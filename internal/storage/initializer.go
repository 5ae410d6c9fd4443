package storage

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Initializer runs a setup function to completion at most once per process,
// even when the first callers arrive concurrently. A failed setup leaves the
// initializer unready so the next call tries again.
type Initializer struct {
	ready atomic.Bool
	mu    sync.Mutex
}

// Do runs setup unless a previous call already succeeded. After warm-up the
// check is a single atomic load; the mutex is only taken on a miss.
func (i *Initializer) Do(ctx context.Context, setup func(context.Context) error) error {
	if i.ready.Load() {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ready.Load() {
		return nil
	}
	if err := setup(ctx); err != nil {
		return err
	}
	i.ready.Store(true)
	return nil
}

// Ready reports whether setup has completed successfully.
func (i *Initializer) Ready() bool {
	return i.ready.Load()
}

// initializers holds one Initializer per database file for the life of the
// process, keyed by absolute path.
var initializers sync.Map

// initializerFor returns the process-wide initializer for path. LoadOrStore
// makes sure only one Initializer wins when several goroutines ask first.
func initializerFor(path string) *Initializer {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	v, _ := initializers.LoadOrStore(key, &Initializer{})
	return v.(*Initializer)
}
