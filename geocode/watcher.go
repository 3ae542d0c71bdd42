package geocode

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the database file must stay quiet after a
// change before the index reloads it.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads an Index when its database file is written, created or
// replaced. It watches the containing directory so editors that save by
// rename are noticed too.
type Watcher struct {
	index    *Index
	watcher  *fsnotify.Watcher
	file     string
	debounce time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	running bool
	pending time.Time // last unprocessed change, zero when none
	reloads int

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a watcher for the index's database file.
func NewWatcher(ix *Index, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if ix.Path() == "" {
		return nil, errors.New("index has no database file")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		index:    ix,
		watcher:  fw,
		file:     filepath.Clean(ix.Path()),
		debounce: debounce,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.file)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("watching address database", zap.String("path", w.file))
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("closing file watcher", zap.Error(err))
	}
}

// Reloads returns the number of reloads performed so far.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.debounce / 5)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		case <-tick.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.file {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.log.Debug("address database changed", zap.String("op", ev.Op.String()))
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// flush reloads once changes have settled for the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	err := w.index.Reload()
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	if err != nil {
		w.log.Error("address database reload failed", zap.Error(err))
		return
	}
	w.log.Info("address database updated", zap.Int("addresses", w.index.Len()))
}
