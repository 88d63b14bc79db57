package worktree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for before reporting.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls fn with the sorted set of changed paths each time the working
// tree settles after a burst of changes. It returns when ctx is done.
func (w *Worktree) Watch(ctx context.Context, debounce time.Duration, fn func(changed []string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addDirs(watcher, w.root); err != nil {
		return err
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if _, err := w.Normalize(rel); err != nil || w.Ignored(rel) {
				continue
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if err := w.addDirs(watcher, ev.Name); err != nil {
					return fmt.Errorf("watch %s: %w", rel, err)
				}
			}
			pending[rel] = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			fn(changed)
		}
	}
}

func (w *Worktree) addDirs(watcher *fsnotify.Watcher, start string) error {
	return filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			rel, _ := filepath.Rel(w.root, p)
			rel = filepath.ToSlash(rel)
			if rel == w.repoDir || w.Ignored(rel) {
				return filepath.SkipDir
			}
		}
		if err := watcher.Add(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
