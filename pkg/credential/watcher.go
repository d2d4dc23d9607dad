package credential

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the credential file for external edits and hot-reloads the
// record into the Manager, so an operator can drop in a fresh credential
// without restarting the gateway. Events are debounced because editors and
// atomic renames produce bursts.
type Watcher struct {
	store    *Store
	manager  *Manager
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a credential file watcher.
func NewWatcher(store *Store, manager *Manager) *Watcher {
	return &Watcher{
		store:    store,
		manager:  manager,
		debounce: 200 * time.Millisecond,
		logger:   slog.Default().With("component", "credential.watcher"),
	}
}

// Watch blocks until the context is cancelled, reloading the credential file
// whenever it changes. The parent directory is watched rather than the file
// itself: atomic saves replace the file, which would otherwise detach the
// watch.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.store.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("credential file watcher started", "path", w.store.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.store.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("credential watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cred, ok := w.store.Load()
	if !ok {
		w.logger.Debug("credential file changed but no valid record loaded")
		return
	}
	w.manager.Adopt(cred)
}
