package coordinator

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/grav1go/internal/logging"
)

// WatchReload watches projects.json and the scenes/ directory for
// external edits — an operator hand-editing persisted state — and
// reloads the registry's in-memory projects when a write lands. It
// blocks until ctx is cancelled; run it in a goroutine.
func WatchReload(ctx context.Context, root string, reload func() error, logger *logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(root); err != nil {
		return err
	}
	_ = watcher.Add(filepath.Join(root, "scenes"))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := reload(); err != nil && logger != nil {
				logger.Error(logging.CategoryAction, "reload after external edit to %s: %v", ev.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Error(logging.CategoryAction, "fsnotify watch error: %v", err)
			}
		}
	}
}
