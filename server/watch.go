package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 500 * time.Millisecond

// configWatcher calls reload after the config file is written. Editors
// usually replace the file rather than write it in place, so the parent
// directory is watched and events are filtered by name.
type configWatcher struct {
	path     string
	reload   func() error
	logger   *slog.Logger
	debounce time.Duration

	fsWatcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func newConfigWatcher(path string, reload func() error, logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &configWatcher{
		path:      abs,
		reload:    reload,
		logger:    logger,
		debounce:  defaultReloadDebounce,
		fsWatcher: fsWatcher,
	}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *configWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *configWatcher) Close() error {
	w.stopTimer()
	return w.fsWatcher.Close()
}

func (w *configWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	// Rename covers atomic replace (write tmp, rename onto the target).
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("config file changed", "op", event.Op.String(), "path", event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *configWatcher) fire() {
	if err := w.reload(); err != nil {
		w.logger.Error("failed to reload configuration", "path", w.path, "error", err)
		return
	}
	w.logger.Info("configuration reloaded after file change", "path", w.path)
}

func (w *configWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
