package store

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"assistbot/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ChangeDetector reports external commits. *Store implements it.
type ChangeDetector interface {
	Changed(ctx context.Context) (bool, error)
}

// Watcher watches the database file and its WAL for writes and emits a
// notification when another process committed new data.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	detector    ChangeDetector
	dbPath      string
	debounceDur time.Duration
	pending     time.Time
	events      chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the database at dbPath.
func NewWatcher(dbPath string, detector ChangeDetector, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		detector:    detector,
		dbPath:      filepath.Clean(dbPath),
		debounceDur: debounce,
		events:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Events delivers one value per detected batch of external changes.
// Notifications coalesce while the receiver is busy.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Start begins watching the database directory. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.dbPath)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watcher("watching %s", dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatcher).Error("error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 3)
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
			logging.Get(logging.CategoryWatcher).Error("fsnotify error: %v", err)

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// relevant reports whether name is the database or one of its side files.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	return name == w.dbPath || strings.HasPrefix(name, w.dbPath+"-")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.relevant(event.Name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	logging.WatcherDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	changed, err := w.detector.Changed(ctx)
	if err != nil {
		logging.Get(logging.CategoryWatcher).Warn("change check failed: %v", err)
		return
	}
	if !changed {
		return
	}
	logging.Watcher("external change detected in %s", w.dbPath)
	select {
	case w.events <- struct{}{}:
	default:
	}
}
