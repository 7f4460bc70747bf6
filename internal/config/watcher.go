package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"conduit/pkg/logging"
)

const debounceInterval = 250 * time.Millisecond

// fileWatcher reloads the manager's config file when it changes on
// disk. Editors typically emit bursts of write events, so reloads are
// debounced.
type fileWatcher struct {
	manager *Manager

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	debounce *time.Timer
}

func newFileWatcher(m *Manager) *fileWatcher {
	return &fileWatcher{manager: m}
}

func (w *fileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	// The config file is optional and on a fresh install its directory
	// does not exist yet. Create it so the watch can be established and
	// the file is picked up whenever it appears.
	dir := filepath.Dir(w.manager.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.Warn("Config", "Cannot create %s, file watching disabled: %v", dir, err)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the containing directory: many editors replace the file on
	// save, which would invalidate a watch on the file itself.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		logging.Warn("Config", "Cannot watch %s, file watching disabled: %v", dir, err)
		return nil
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(watcher)

	logging.Info("Config", "Watching %s for changes", w.manager.path)
	return nil
}

func (w *fileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	watcher := w.watcher
	w.watcher = nil
	done := w.done
	w.mu.Unlock()

	watcher.Close()
	<-done

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.mu.Unlock()

	logging.Info("Config", "Stopped watching %s", w.manager.path)
}

func (w *fileWatcher) Watching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// loop owns the watcher handle for its whole lifetime; Stop must not
// nil the shared field while the loop still selects on it. Closing the
// watcher ends the loop through the closed Events channel.
func (w *fileWatcher) loop(watcher *fsnotify.Watcher) {
	defer close(w.done)

	target := filepath.Clean(w.manager.path)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Config", err, "File watcher error")
		}
	}
}

func (w *fileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceInterval, func() {
		if err := w.manager.Load(); err != nil {
			logging.Error("Config", err, "Reload failed")
			return
		}
		logging.Info("Config", "Configuration reloaded")
	})
}
