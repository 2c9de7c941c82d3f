// Package watch keeps the catalog current while files change underneath it:
// a recursive filesystem watcher feeds debounced events to the indexer, and
// an optional udev monitor notices removable volumes coming and going.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"reelcat/internal/config"
	"reelcat/internal/fileutil"
	"reelcat/internal/logging"
	"reelcat/internal/services"
)

// Watcher provides recursive filesystem watching over the configured roots
// with candidate filtering and debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	walker    *fileutil.Walker
	logger    *slog.Logger
}

// NewWatcher registers every directory under the configured watch roots.
func NewWatcher(cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Watch.Roots) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "new", "watch.roots is empty", nil)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "watch", "new", "create watcher", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond),
		walker:    fileutil.NewWalker(cfg, logger),
		logger:    logging.NewComponentLogger(logger, "watch"),
	}

	for _, root := range cfg.Watch.Roots {
		if err := w.addTree(root); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	root, err := config.ExpandPath(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory",
				logging.String(logging.FieldPath, path),
				logging.Error(watchErr))
		}
		return nil
	})
}

// Events returns the channel debounced batches are delivered on.
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Start consumes raw fsnotify events until the watcher is closed. Run it in
// a goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories join the watch set; their creation is not an event.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.fsWatcher.Add(path); err != nil {
				w.logger.Warn("failed to watch new directory",
					logging.String(logging.FieldPath, path),
					logging.Error(err))
			}
			return
		}
	}

	if !w.walker.Candidate(path) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(path, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
