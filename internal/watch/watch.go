// Package watch triggers resource rescans when files under the resource
// root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pxs/internal/px"
)

// DefaultDebounce coalesces editor save bursts into one notification.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a resource root recursively. fsnotify watches single
// directories, so every subdirectory is added on start and as it appears.
type Watcher struct {
	root     string
	ignorer  px.Ignorer
	debounce time.Duration
	logger   px.Logger
}

// New creates a Watcher. A nil ignorer watches everything; a zero debounce
// uses DefaultDebounce.
func New(root string, ignorer px.Ignorer, debounce time.Duration, logger px.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = px.NewNopLogger()
	}
	return &Watcher{root: root, ignorer: ignorer, debounce: debounce, logger: logger}
}

// Run blocks until ctx is done, calling onChange once per burst of changes.
// onChange runs on the watcher goroutine; a slow callback delays the next
// notification but never overlaps with itself.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching %s: not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching resources", "root", w.root)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("resource changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case <-timer.C:
			onChange()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("error watching resources", "error", err)
		}
	}
}

// relevant drops events on ignored paths and pure attribute changes.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.ignorer == nil {
		return true
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return true
	}
	return !w.ignorer.Match(rel)
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("walking %s: %w", dir, err)
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			w.logger.Warn("skipping unreadable directory", "path", path, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignorer != nil {
			if rel, err := filepath.Rel(w.root, path); err == nil && w.ignorer.Match(rel) {
				return fs.SkipDir
			}
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
