// Package watcher reloads the store when the snapshot file changes on disk.
// Snapshot swaps are usually atomic renames, so the watch covers the parent
// directory and filters events down to the snapshot's name.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher triggers a reload callback when the watched snapshot changes.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(path string) error
	logger   *zap.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
}

// New builds a watcher for the snapshot at path. onChange runs after
// changes settle for the debounce window.
func New(path string, onChange func(path string) error, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; events are handled on a
// background goroutine until Stop.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.started = true
	go w.loop()
	w.logger.Info("watching snapshot", zap.String("path", w.path))
	return nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("snapshot changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer; a burst of events fires one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	if err := w.onChange(w.path); err != nil {
		w.logger.Error("snapshot reload failed",
			zap.String("path", w.path),
			zap.Error(err))
		return
	}
	w.logger.Info("snapshot reloaded", zap.String("path", w.path))
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return w.fsw.Close()
	}
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fsw.Close()
}
