// Package watch rebuilds documents when their sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ccollicutt/texrun/pkg/config"
)

// Event asks the handler to compile Target because Path changed.
type Event struct {
	Path   string
	Target string

	// First is set for the first build the watcher starts.
	First bool
}

// Handler compiles one target. It runs on its own goroutine and at most
// one handler runs at a time.
type Handler func(ctx context.Context, ev Event)

// Stats counts watcher activity.
type Stats struct {
	Events int
	Builds int

	// Deferred counts ready builds put back because another build was running.
	Deferred int
	Errors   int
}

// Watcher watches a document's directory. In file mode any change to the
// target or to a file with a watched extension rebuilds the target. In
// directory mode a change to a .tex file rebuilds that file.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	handler Handler
	logger  *zap.Logger

	dir        string
	target     string
	extensions map[string]bool
	debounce   time.Duration

	pending map[string]pendingBuild
	sem     *semaphore.Weighted
	builds  sync.WaitGroup

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

type pendingBuild struct {
	path string
	at   time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets how long a target must be quiet before it is rebuilt.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions sets the extensions that trigger a rebuild in file mode.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			w.extensions[strings.ToLower(ext)] = true
		}
	}
}

// New creates a Watcher for target, a .tex file or a directory.
func New(target string, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", target, err)
	}

	w := &Watcher{
		handler:  handler,
		logger:   zap.NewNop(),
		debounce: config.DefaultDebounce,
		pending:  make(map[string]pendingBuild),
		sem:      semaphore.NewWeighted(1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	WithExtensions(".tex", ".bib")(w)

	if info.IsDir() {
		w.dir = abs
	} else {
		w.dir = filepath.Dir(abs)
		w.target = abs
	}

	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Match returns the document to compile when path changes.
func (w *Watcher) Match(path string) (string, bool) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(path))

	if w.target == "" {
		if ext != ".tex" {
			return "", false
		}
		return path, true
	}

	if path == w.target || w.extensions[ext] {
		return w.target, true
	}
	return "", false
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.watcher = fsw
	w.running = true
	w.logger.Info("watching", zap.String("dir", w.dir), zap.String("target", w.target))

	go w.run(ctx)
	return nil
}

// Stop stops watching and waits for a running build to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.builds.Wait()

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("closing watcher", zap.Error(err))
	}
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	target, ok := w.Match(event.Name)
	if !ok {
		return
	}

	w.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.stats.Events++
	w.pending[target] = pendingBuild{path: event.Name, at: time.Now()}
	w.mu.Unlock()
}

// flush starts a build for each target that has been quiet for the
// debounce interval.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var ready []Event
	for target, p := range w.pending {
		if now.Sub(p.at) >= w.debounce {
			ready = append(ready, Event{Path: p.path, Target: target})
			delete(w.pending, target)
		}
	}
	w.mu.Unlock()

	for _, ev := range ready {
		err := w.trigger(ctx, ev)
		switch {
		case errors.Is(err, errBusy):
			w.requeue(ev, now)
		case err != nil:
			w.logger.Info("change ignored", zap.String("path", ev.Path), zap.Error(err))
		}
	}
}

// requeue puts ev back so it is retried on a later tick, unless a newer
// change to the same target is already waiting.
func (w *Watcher) requeue(ev Event, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Deferred++
	if _, ok := w.pending[ev.Target]; ok {
		return
	}
	w.pending[ev.Target] = pendingBuild{path: ev.Path, at: now.Add(-w.debounce)}
	w.logger.Debug("build in progress, change deferred", zap.String("path", ev.Path))
}

var errBusy = errors.New("build already in progress")

func (w *Watcher) trigger(ctx context.Context, ev Event) error {
	if !w.sem.TryAcquire(1) {
		return errBusy
	}

	w.mu.Lock()
	ev.First = w.stats.Builds == 0
	w.stats.Builds++
	w.mu.Unlock()

	w.logger.Info("rebuilding", zap.String("target", ev.Target), zap.String("changed", ev.Path))

	w.builds.Add(1)
	go func() {
		defer w.builds.Done()
		defer w.sem.Release(1)
		w.handler(ctx, ev)
	}()
	return nil
}
