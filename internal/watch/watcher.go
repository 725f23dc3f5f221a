// Package watch re-runs a submission when the source file is saved.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cfsubmit/internal/logging"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called once per debounced save.
type ChangeFunc func(ctx context.Context)

// Stats counts what the watcher has seen.
type Stats struct {
	Events    int
	Triggered int
	Errors    int
	LastEvent time.Time
}

// SourceWatcher watches one file. The parent directory is watched rather
// than the file itself so editors that save by rename keep being tracked.
type SourceWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	dir      string
	debounce time.Duration
	onChange ChangeFunc

	pending   bool
	lastEvent time.Time
	stats     Stats
}

// New creates a SourceWatcher for path. Call Run to start it.
func New(path string, debounce time.Duration, onChange ChangeFunc) (*SourceWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &SourceWatcher{
		watcher:  w,
		path:     abs,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

// Run blocks until ctx is done or the watcher fails. The fsnotify watcher is
// closed on return.
func (sw *SourceWatcher) Run(ctx context.Context) error {
	logging.Watch("Watching %s", sw.path)
	defer func() {
		if err := sw.watcher.Close(); err != nil {
			logging.WatchWarn("Error closing watcher: %v", err)
		}
		logging.Watch("Stopped watching %s", sw.path)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sw.pump(gctx) })
	g.Go(func() error { return sw.fire(gctx) })

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// pump records relevant filesystem events.
func (sw *SourceWatcher) pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			sw.handleEvent(event)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logging.WatchWarn("Watcher error: %v", err)
			sw.mu.Lock()
			sw.stats.Errors++
			sw.mu.Unlock()
		}
	}
}

func (sw *SourceWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != sw.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	logging.WatchDebug("%s event for %s", event.Op, event.Name)

	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pending = true
	sw.lastEvent = time.Now()
	sw.stats.Events++
	sw.stats.LastEvent = sw.lastEvent
}

// fire calls onChange once the file has been quiet for the debounce period.
func (sw *SourceWatcher) fire(ctx context.Context) error {
	tick := sw.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sw.mu.Lock()
			due := sw.pending && time.Since(sw.lastEvent) >= sw.debounce
			if due {
				sw.pending = false
				sw.stats.Triggered++
			}
			sw.mu.Unlock()

			if due {
				logging.Watch("Change detected in %s", filepath.Base(sw.path))
				sw.onChange(ctx)
			}
		}
	}
}

// Stats returns a snapshot of the counters.
func (sw *SourceWatcher) Stats() Stats {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.stats
}
