package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-cloak/internal/log"
)

// Watcher reloads a settings file when it changes on disk. Only settings
// that load and validate are delivered; broken edits are logged and skipped.
type Watcher struct {
	path    string
	fs      *fsnotify.Watcher
	updates chan Settings
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Watch starts watching path. The parent directory is watched so editors
// that save by renaming are still seen.
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:    abs,
		fs:      fs,
		updates: make(chan Settings, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Poll returns the most recent reloaded settings, if any arrived since the
// last call. It never blocks.
func (w *Watcher) Poll() (Settings, bool) {
	select {
	case s := <-w.updates:
		return s, true
	default:
		return Settings{}, false
	}
}

// Updates exposes the reload channel for callers that prefer to select on it.
func (w *Watcher) Updates() <-chan Settings {
	return w.updates
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn("settings watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload() {
	s, err := Load(w.path)
	if err != nil {
		// Editors often write in several steps; the next event will retry.
		log.Warn("ignoring settings change", "path", w.path, "error", err)
		return
	}
	log.Info("settings reloaded", "path", w.path)

	// Keep only the newest update.
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- s:
	default:
	}
}
