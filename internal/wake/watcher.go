package wake

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// StateWatcher watches the wakeword state file for external edits (e.g. a
// hotkey binding invoking `wakeword-toggle` from another process) and
// invokes onChange with the freshly read state whenever it changes.
type StateWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *slog.Logger
	done    chan struct{}
}

// WatchState starts watching path's parent directory (so renames-into-place
// from the atomic writer are observed) and calls onChange after every
// write/create/rename event that targets path.
func WatchState(path string, logger *slog.Logger, onChange func(State)) (*StateWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sw := &StateWatcher{watcher: w, path: path, logger: logger, done: make(chan struct{})}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				st, readErr := ReadState(path)
				if readErr != nil {
					logger.Warn("wakeword state watch read failed", "err", readErr)
					continue
				}
				onChange(st)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("wakeword state watch error", "err", err)

			case <-sw.done:
				return
			}
		}
	}()

	return sw, nil
}

// Close stops the watcher.
func (sw *StateWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
