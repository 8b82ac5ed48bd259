// Package watch is the fsnotify-based external watcher collaborator
// spec.md §1 places outside the core (the core only "accepts a list of
// changed paths"); this package adapts the teacher's watcher.go
// debounce-and-batch pattern to call a pipeline with that list instead
// of a Builder directly.
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

// Config mirrors the teacher's WatcherConfig, narrowed to what spec.md
// §4.J's "watchers MAY debounce (≈500 ms) and call the pipeline with a
// list of paths" needs: a debounce window and the set of roots to watch.
type Config struct {
	DebounceDuration time.Duration
	WatchDirs        []string
	Verbose          bool
	// OnBatch is called with the deduplicated set of changed paths once
	// the debounce window elapses with no new events.
	OnBatch func(ctx context.Context, paths []string)
	// OnError reports a non-fatal watcher error (e.g. a directory that
	// disappeared mid-watch).
	OnError func(error)
}

// DefaultConfig matches spec.md §4.J's ≈500ms debounce recommendation.
func DefaultConfig() Config {
	return Config{DebounceDuration: 500 * time.Millisecond}
}

// Watcher wraps an fsnotify.Watcher with debounced batching.
type Watcher struct {
	cfg       Config
	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New constructs a Watcher, failing only if the underlying fsnotify
// watcher cannot be created.
func New(cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	return &Watcher{cfg: cfg, fsWatcher: fsWatcher}, nil
}

// Start watches every configured directory recursively and begins
// debounced batch delivery. It returns immediately; watching runs in
// background goroutines until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watch: already running")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	for _, dir := range w.cfg.WatchDirs {
		if err := w.addRecursive(dir); err != nil {
			cancel()
			w.running = false
			return fmt.Errorf("watch: adding %s: %w", dir, err)
		}
	}

	changed := make(chan string, 256)
	go w.readEvents(watchCtx, changed)
	go w.debounce(watchCtx, changed)
	return nil
}

// Stop closes the underlying fsnotify watcher and cancels background work.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fsWatcher.Close()
	w.running = false
	return err
}

func (w *Watcher) addRecursive(root string) error {
	if err := w.fsWatcher.Add(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			if err := w.fsWatcher.Add(path); err != nil && w.cfg.OnError != nil {
				w.cfg.OnError(fmt.Errorf("watch: adding %s: %w", path, err))
			}
		}
		return nil
	})
}

func (w *Watcher) readEvents(ctx context.Context, out chan<- string) {
	defer close(out)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case out <- event.Name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.cfg.OnError != nil {
				w.cfg.OnError(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// debounce accumulates changed paths and flushes a deduplicated batch
// once the configured debounce window elapses with no new events,
// matching spec.md §4.J's "debounce (≈500 ms) and call the pipeline
// with a list of paths".
func (w *Watcher) debounce(ctx context.Context, in <-chan string) {
	pending := map[string]bool{}
	var timer *time.Timer
	var timerChan <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = map[string]bool{}
		if w.cfg.OnBatch != nil {
			w.cfg.OnBatch(ctx, paths)
		}
	}

	for {
		select {
		case path, ok := <-in:
			if !ok {
				flush()
				return
			}
			pending[path] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.cfg.DebounceDuration)
			timerChan = timer.C
		case <-timerChan:
			flush()
			timerChan = nil
		case <-ctx.Done():
			flush()
			return
		}
	}
}
