package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// GlobalsWatcher watches a dev content root for file changes and bumps
// Globals' version whenever one is observed, standing in for an external
// build process that would otherwise own that signal.
type GlobalsWatcher struct {
	globals *Globals
	logger  Logger
	watcher *fsnotify.Watcher
	version atomic.Int64
	done    chan struct{}
}

// WatchDir starts watching root (recursively) and returns a GlobalsWatcher
// driving globals. Call Close to stop.
func WatchDir(root string, globals *Globals, logger Logger) (*GlobalsWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	w := &GlobalsWatcher{globals: globals, logger: logger, watcher: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *GlobalsWatcher) run() {
	var timer *time.Timer
	debounce := 100 * time.Millisecond

	bump := func() {
		v := int(w.version.Add(1))
		status, hasStatus, isError := w.globals.Status()
		w.globals.Store(v, status, hasStatus, isError)
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, bump)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Errorf("config: watch error: %v", err)
			}

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *GlobalsWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
