package catalog

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher re-validates the catalog whenever the file changes on disk and logs
// the outcome, so a broken edit is reported at save time instead of on the next
// request. It never serves episodes; handlers keep loading through Store.
type Watcher struct {
	store        *Store
	logger       *log.Logger
	watcher      *fsnotify.Watcher
	refreshDelay time.Duration

	mu   sync.RWMutex
	last Validation

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewWatcher validates the catalog once and starts watching its directory.
// The directory is watched rather than the file because editors commonly
// replace files by rename.
func NewWatcher(store *Store, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		store:        store,
		logger:       logger,
		watcher:      watcher,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	if err := watcher.Add(filepath.Dir(store.Path())); err != nil {
		watcher.Close()
		return nil, err
	}

	w.validate()

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the file watcher and releases resources.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.refreshMu.Lock()
		if w.refreshTimer != nil {
			w.refreshTimer.Stop()
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

// Validation is the outcome of the most recent catalog check.
type Validation struct {
	Episodes int
	Err      error
	Checks   int
}

// LastValidation reports the result of the most recent check.
func (w *Watcher) LastValidation() Validation {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "err", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.store.Path() {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.scheduleValidate()
	}
}

func (w *Watcher) scheduleValidate() {
	select {
	case <-w.done:
		return
	default:
	}

	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	if w.refreshTimer != nil {
		w.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.refreshDelay, func() {
		w.validate()

		w.refreshMu.Lock()
		if w.refreshTimer == timer {
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()
	})

	w.refreshTimer = timer
}

func (w *Watcher) validate() {
	episodes, err := w.store.LoadStrict()

	w.mu.Lock()
	w.last = Validation{
		Episodes: len(episodes),
		Err:      err,
		Checks:   w.last.Checks + 1,
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("catalog is not loadable; requests will see an empty catalog", "path", w.store.Path(), "err", err)
		return
	}

	if dup, ok := FirstDuplicateID(episodes); ok {
		w.logger.Warn("catalog has duplicate episode id; lookups return the first match", "id", dup)
	}
	w.logger.Info("catalog changed", "path", w.store.Path(), "episodes", len(episodes))
}
