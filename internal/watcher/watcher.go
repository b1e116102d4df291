package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events produced by a bulk copy.
const DefaultDebounce = 500 * time.Millisecond

// shardPattern matches shard file names.
const shardPattern = "organizations_part_*.json"

// Invalidator drops a cached snapshot. *corpus.Cache implements it.
type Invalidator interface {
	Invalidate()
}

// CorpusWatcher watches a shard directory and calls Invalidate once per
// burst of changes.
type CorpusWatcher struct {
	dir      string
	debounce time.Duration
	target   Invalidator
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   int
}

// New creates a watcher. A zero debounce selects DefaultDebounce.
func New(dir string, debounce time.Duration, target Invalidator, logger *slog.Logger) *CorpusWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusWatcher{dir: dir, debounce: debounce, target: target, logger: logger}
}

// Run watches until ctx is cancelled. A directory that cannot be watched is
// logged and Run returns nil without watching.
func (w *CorpusWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("corpus watcher disabled", slog.String("error", err.Error()))
		return nil
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		w.logger.Warn("corpus watcher disabled",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()))
		return nil
	}
	w.logger.Info("watching corpus directory", slog.String("dir", w.dir))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if relevant(ev) {
				w.logger.Debug("shard changed", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus watcher error", slog.String("error", err.Error()))
		}
	}
}

// Fired returns how many invalidations have been issued.
func (w *CorpusWatcher) Fired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *CorpusWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *CorpusWatcher) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.fired++
	w.mu.Unlock()

	w.target.Invalidate()
}

func (w *CorpusWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	ok, err := filepath.Match(shardPattern, filepath.Base(ev.Name))
	return err == nil && ok && !strings.HasPrefix(filepath.Base(ev.Name), ".")
}

// String is used in logs.
func (w *CorpusWatcher) String() string {
	return fmt.Sprintf("corpus watcher on %s", w.dir)
}
