// Package watch re-runs the conversion pipeline whenever the dataset CSV
// or one of its referenced data files changes. The pipeline itself stays a
// synchronous one-shot; the watcher is only an outer re-invocation loop
// for iterating on datasets while the platform is running.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"speckgen/internal/pipeline"
)

const (
	defaultDebounce = 500 * time.Millisecond

	// settleTick is how often pending changes are checked against the
	// debounce window.
	settleTick = 100 * time.Millisecond
)

// Stats tracks watcher activity for tests and debugging.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
}

// Watcher owns the fsnotify instance and the re-run loop. Changes are
// deferred, never dropped: a relevant event marks the watcher pending, and
// the pipeline re-runs once events have settled for the debounce window.
type Watcher struct {
	mu        sync.RWMutex
	fsw       *fsnotify.Watcher
	opts      pipeline.Options
	log       *zap.Logger
	debounce  time.Duration
	pending   bool
	lastEvent time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	stats     Stats
}

// New creates a watcher for the dataset in opts. debounce <= 0 selects the
// default; editors tend to fire several writes per save, and the run must
// convert the state after the last of them.
func New(opts pipeline.Options, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fsw:      fsw,
		opts:     opts,
		log:      log,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start runs the pipeline once, then begins watching the dataset file's
// directory for CSV changes. Non-blocking; the loop runs in a goroutine
// until Stop is called or ctx is canceled. The initial run's error is
// returned but does not prevent watching: a broken dataset can be fixed
// under watch.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsw.Add(filepath.Dir(w.opts.DatasetPath)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.fsw.Close()
		return err
	}

	runErr := w.runOnce()

	go w.loop(ctx)
	return runErr
}

// Stop shuts the loop down and waits for it to finish.
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
	w.fsw.Close()
}

// Watching reports whether the re-run loop is active. Start can return an
// initial-run error while the loop keeps going; this tells the two apart.
func (w *Watcher) Watching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	ticker := time.NewTicker(settleTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.mu.Lock()
			w.stats.Events++
			w.stats.LastEventPath = event.Name
			w.pending = true
			w.lastEvent = time.Now()
			w.mu.Unlock()
			w.log.Debug("change detected",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))
		case <-ticker.C:
			w.mu.Lock()
			settled := w.pending && time.Since(w.lastEvent) >= w.debounce
			if settled {
				w.pending = false
			}
			path := w.stats.LastEventPath
			w.mu.Unlock()
			if !settled {
				continue
			}
			w.log.Info("changes settled, re-running", zap.String("path", path))
			if err := w.runOnce(); err != nil {
				w.log.Error("re-run failed", zap.Error(err))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// relevant keeps only writes/creates of CSV files: generated .speck,
// .label and .asset files land in the same directory and must not retrigger
// the pipeline.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".csv")
}

func (w *Watcher) runOnce() error {
	w.mu.Lock()
	w.stats.Runs++
	w.mu.Unlock()

	_, err := pipeline.Run(w.opts)
	return err
}
