// Package worktree implements the working-directory primitives the
// repository operations are built on: listing, reading, writing and
// deleting files by repository-relative, slash-separated path.
package worktree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrOutsideTree is returned for paths that resolve outside the working
	// tree or into the repository directory.
	ErrOutsideTree = errors.New("path outside working tree")
	// ErrInvalidPath is returned for paths that are not valid UTF-8 or not in
	// canonical repository-relative form.
	ErrInvalidPath = errors.New("invalid path")
)

// Worktree is a working directory rooted at Root, excluding its repository
// directory and any ignored paths.
type Worktree struct {
	root    string
	repoDir string
	ignore  *Matcher
}

// New returns a Worktree rooted at root. repoDir is the name of the
// repository directory directly under root, which is never listed.
func New(root, repoDir string, ignore *Matcher) (*Worktree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve worktree root: %w", err)
	}
	return &Worktree{root: abs, repoDir: repoDir, ignore: ignore}, nil
}

// Root returns the absolute working-tree root.
func (w *Worktree) Root() string { return w.root }

// Normalize converts a user-supplied path (absolute, or relative to the
// root) into the canonical repository-relative form.
func (w *Worktree) Normalize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideTree)
	}
	if !utf8.ValidString(p) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPath, p)
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideTree, p)
		}
		p = rel
	}
	rel := filepath.ToSlash(filepath.Clean(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideTree, p)
	}
	if rel == w.repoDir || strings.HasPrefix(rel, w.repoDir+"/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideTree, p)
	}
	return rel, nil
}

// Check verifies that rel, typically a path read from a stored manifest, is
// already in the form Normalize produces and names a file inside the tree.
func (w *Worktree) Check(rel string) error {
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %q", ErrOutsideTree, rel)
	}
	norm, err := w.Normalize(rel)
	if err != nil {
		return err
	}
	if norm != rel {
		return fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return nil
}

func (w *Worktree) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Ignored reports whether rel is excluded by the ignore patterns.
func (w *Worktree) Ignored(rel string) bool { return w.ignore.Match(rel) }

// List returns every regular, non-ignored file, sorted.
func (w *Worktree) List() ([]string, error) { return w.walk(false) }

// ListAll returns every regular file including ignored ones, sorted. Only the
// repository directory is skipped.
func (w *Worktree) ListAll() ([]string, error) { return w.walk(true) }

func (w *Worktree) walk(withIgnored bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == w.root {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == w.repoDir || (!withIgnored && w.Ignored(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || (!withIgnored && w.Ignored(rel)) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list working tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Exists reports whether rel is a regular file.
func (w *Worktree) Exists(rel string) bool {
	info, err := os.Stat(w.abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// Read returns the content of rel.
func (w *Worktree) Read(rel string) ([]byte, error) {
	data, err := os.ReadFile(w.abs(rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// Write replaces rel with data, creating parent directories.
func (w *Worktree) Write(rel string, data []byte) error {
	if err := w.Check(rel); err != nil {
		return err
	}
	p := w.abs(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create parent of %s: %w", rel, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Remove deletes rel if present and prunes directories it leaves empty.
func (w *Worktree) Remove(rel string) error {
	if err := w.Check(rel); err != nil {
		return err
	}
	p := w.abs(rel)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	for dir := filepath.Dir(p); dir != w.root && strings.HasPrefix(dir, w.root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break // not empty
		}
	}
	return nil
}
