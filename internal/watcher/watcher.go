// Package watcher re-runs work when input files change on disk.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period required after the last write
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called with the path of a changed file. Calls never overlap.
type ChangeFunc func(ctx context.Context, path string)

// Watcher watches a set of files, typically a flow dataset and the files
// it is annotated with
type Watcher struct {
	paths    []string
	onChange ChangeFunc
	debounce time.Duration

	// serializes onChange
	mu sync.Mutex
}

// New creates a watcher for paths
func New(paths []string, onChange ChangeFunc) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is cancelled. Directories are watched instead of
// files so that editors replacing a file are noticed.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watchedDirs := make(map[string]bool)
	files := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := fsw.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			watchedDirs[dir] = true
		}
		files[abs] = true
		log.Printf("Watching %s for changes", abs)
	}

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range timers {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if timer, exists := timers[abs]; exists {
				timer.Stop()
			}
			timers[abs] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.mu.Lock()
				defer w.mu.Unlock()
				log.Printf("File changed: %s", abs)
				w.onChange(ctx, abs)
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
