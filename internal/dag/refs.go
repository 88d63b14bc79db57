package dag

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrRefNotFound is returned when a named pointer does not exist.
	ErrRefNotFound = errors.New("ref not found")
	// ErrBadRefName is returned for names that cannot be stored as a ref.
	ErrBadRefName = errors.New("invalid ref name")
)

// table maps names to single-line string values, one file per name.
// Names may contain '/' and are then stored in subdirectories.
type table struct {
	dir string
}

func newTable(dir string) (table, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return table{}, fmt.Errorf("create %s: %w", filepath.Base(dir), err)
	}
	return table{dir: dir}, nil
}

// ValidRefName reports whether name is usable as a branch, remote, or tracking ref name.
func ValidRefName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, ".") {
			return false
		}
		if strings.ContainsAny(part, "\\\x00\n") {
			return false
		}
	}
	return true
}

func (t table) path(name string) (string, error) {
	if !ValidRefName(name) {
		return "", fmt.Errorf("%w: %q", ErrBadRefName, name)
	}
	return filepath.Join(t.dir, filepath.FromSlash(name)), nil
}

func (t table) write(name, value string) error {
	path, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ref dir: %w", err)
	}
	return SafeWrite(path, []byte(value+"\n"), 0644)
}

func (t table) read(name string) (string, error) {
	path, err := t.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrRefNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read ref %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (t table) remove(name string) error {
	path, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRefNotFound, name)
		}
		return err
	}
	// Prune now-empty namespace directories.
	for dir := filepath.Dir(path); dir != t.dir && strings.HasPrefix(dir, t.dir); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

func (t table) has(name string) bool {
	path, err := t.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (t table) list() ([]string, error) {
	var names []string
	err := filepath.WalkDir(t.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(t.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// RefStore manages name -> commit hash pointers as files.
// Each ref is a file whose content is the bare commit hash.
type RefStore struct {
	t table
}

// NewRefStore creates a RefStore at the given directory.
func NewRefStore(dir string) (*RefStore, error) {
	t, err := newTable(dir)
	if err != nil {
		return nil, err
	}
	return &RefStore{t: t}, nil
}

// Set points name at h.
func (r *RefStore) Set(name string, h Hash) error {
	if !h.Valid() {
		return fmt.Errorf("set ref %s: malformed hash %q", name, h)
	}
	return r.t.write(name, string(h))
}

// Get resolves name to a commit hash.
func (r *RefStore) Get(name string) (Hash, error) {
	s, err := r.t.read(name)
	if err != nil {
		return "", err
	}
	h := Hash(s)
	if !h.Valid() {
		return "", fmt.Errorf("ref %s: malformed hash %q", name, s)
	}
	return h, nil
}

// Delete removes a ref.
func (r *RefStore) Delete(name string) error { return r.t.remove(name) }

// Has checks if a ref exists.
func (r *RefStore) Has(name string) bool { return r.t.has(name) }

// List returns all ref names, sorted.
func (r *RefStore) List() ([]string, error) { return r.t.list() }

// RemoteStore manages remote name -> filesystem path entries.
type RemoteStore struct {
	t table
}

// NewRemoteStore creates a RemoteStore at the given directory.
func NewRemoteStore(dir string) (*RemoteStore, error) {
	t, err := newTable(dir)
	if err != nil {
		return nil, err
	}
	return &RemoteStore{t: t}, nil
}

// Set records the path of remote name.
func (r *RemoteStore) Set(name, path string) error {
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: remote names cannot contain '/': %q", ErrBadRefName, name)
	}
	return r.t.write(name, path)
}

// Get returns the path recorded for remote name.
func (r *RemoteStore) Get(name string) (string, error) { return r.t.read(name) }

// Delete removes a remote.
func (r *RemoteStore) Delete(name string) error { return r.t.remove(name) }

// Has checks if a remote exists.
func (r *RemoteStore) Has(name string) bool { return r.t.has(name) }

// List returns all remote names, sorted.
func (r *RemoteStore) List() ([]string, error) { return r.t.list() }
