// Package watch re-runs analysis when a log source changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors one log file and triggers re-analysis on change.
// Events are debounced: schedulers append in bursts, and one run per
// burst is enough.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration

	// OnChange runs after a debounced change. Errors are reported via
	// OnError and do not stop the watch loop.
	OnChange func(path string) error
	OnError  func(path string, err error)
}

// New creates a watcher for the given file.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("watch: stat: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	// Watch the directory; editors and log rotation replace files, and
	// fsnotify loses inode-level watches on replace.
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch: add dir: %w", err)
	}

	return &Watcher{
		fs:       fs,
		path:     abs,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Run blocks until the context is canceled. OnChange never runs
// concurrently with itself: changes arriving while a run is active are
// coalesced into one follow-up run after it finishes.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var mu sync.Mutex
	var timer *time.Timer
	running := false
	rerun := false

	fire := func() {
		mu.Lock()
		if running {
			rerun = true
			mu.Unlock()
			return
		}
		running = true
		mu.Unlock()

		for {
			if ctx.Err() != nil {
				return
			}
			if w.OnChange != nil {
				if err := w.OnChange(w.path); err != nil && w.OnError != nil {
					w.OnError(w.path, err)
				}
			}
			mu.Lock()
			if !rerun {
				running = false
				mu.Unlock()
				return
			}
			rerun = false
			mu.Unlock()
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)
			mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(w.path, err)
			}
		}
	}
}
