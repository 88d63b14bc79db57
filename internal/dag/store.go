package dag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCommitCacheSize bounds the decoded-commit cache when none is configured.
const DefaultCommitCacheSize = 256

var (
	// ErrObjectNotFound is returned when a blob or commit is not in the store.
	ErrObjectNotFound = errors.New("object not found")
	// ErrAmbiguousPrefix is returned when an abbreviated hash matches several commits.
	ErrAmbiguousPrefix = errors.New("ambiguous hash prefix")
)

// ObjectStore manages hash-addressed immutable objects on disk:
// raw file contents under blobs/ and serialized commits under commits/.
type ObjectStore struct {
	root    string
	blobs   string
	commits string
	cache   *lru.Cache[Hash, *Commit]
}

// NewObjectStore opens (creating if needed) an ObjectStore rooted at root.
func NewObjectStore(root string, cacheSize int) (*ObjectStore, error) {
	s := &ObjectStore{
		root:    root,
		blobs:   filepath.Join(root, "blobs"),
		commits: filepath.Join(root, "commits"),
	}
	for _, dir := range []string{s.blobs, s.commits} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create objects dir: %w", err)
		}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCommitCacheSize
	}
	cache, err := lru.New[Hash, *Commit](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("commit cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Root returns the directory holding blobs/ and commits/.
func (s *ObjectStore) Root() string { return s.root }

// BlobPath returns the on-disk location of a blob.
func (s *ObjectStore) BlobPath(h Hash) string { return filepath.Join(s.blobs, string(h)) }

// CommitPath returns the on-disk location of a commit.
func (s *ObjectStore) CommitPath(h Hash) string { return filepath.Join(s.commits, string(h)) }

func putObject(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}
	if err := SafeWrite(path, data, 0644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func getObject(path string, h Hash) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, h)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", h, err)
	}
	return data, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PutBlob stores data and returns its hash. Storing existing content is a no-op.
func (s *ObjectStore) PutBlob(data []byte) (Hash, error) {
	h, err := Sum(data)
	if err != nil {
		return "", err
	}
	if err := putObject(s.BlobPath(h), data); err != nil {
		return "", err
	}
	return h, nil
}

// GetBlob reads a blob by hash.
func (s *ObjectStore) GetBlob(h Hash) ([]byte, error) {
	return getObject(s.BlobPath(h), h)
}

// HasBlob checks if a blob exists.
func (s *ObjectStore) HasBlob(h Hash) bool { return exists(s.BlobPath(h)) }

// PutCommit serializes and stores c, returning its hash.
func (s *ObjectStore) PutCommit(c *Commit) (Hash, error) {
	data, err := c.Encode()
	if err != nil {
		return "", fmt.Errorf("serialize commit: %w", err)
	}
	h, err := Sum(data)
	if err != nil {
		return "", err
	}
	if err := putObject(s.CommitPath(h), data); err != nil {
		return "", err
	}
	return h, nil
}

// GetCommit reads and decodes a commit by full hash. The returned commit is the
// caller's own copy.
func (s *ObjectStore) GetCommit(h Hash) (*Commit, error) {
	if c, ok := s.cache.Get(h); ok {
		return c.clone(), nil
	}
	data, err := getObject(s.CommitPath(h), h)
	if err != nil {
		return nil, err
	}
	c, err := DecodeCommit(data)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", h, err)
	}
	s.cache.Add(h, c)
	return c.clone(), nil
}

// HasCommit checks if a commit exists.
func (s *ObjectStore) HasCommit(h Hash) bool { return exists(s.CommitPath(h)) }

func (c *Commit) clone() *Commit {
	cp := *c
	cp.Parents = append([]Hash{}, c.Parents...)
	cp.Files = make(map[string]Hash, len(c.Files))
	for p, h := range c.Files {
		cp.Files[p] = h
	}
	return &cp
}

func listObjects(dir string) ([]Hash, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	hashes := make([]Hash, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		hashes = append(hashes, Hash(e.Name()))
	}
	return hashes, nil
}

// Commits returns every stored commit hash in store (directory) order.
func (s *ObjectStore) Commits() ([]Hash, error) { return listObjects(s.commits) }

// Blobs returns every stored blob hash in store (directory) order.
func (s *ObjectStore) Blobs() ([]Hash, error) { return listObjects(s.blobs) }

// CommitsWithPrefix returns all stored commit hashes starting with prefix.
func (s *ObjectStore) CommitsWithPrefix(prefix string) ([]Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if len(prefix) == HashLen {
		if s.HasCommit(Hash(prefix)) {
			return []Hash{Hash(prefix)}, nil
		}
		return nil, nil
	}
	all, err := s.Commits()
	if err != nil {
		return nil, err
	}
	var matches []Hash
	for _, h := range all {
		if strings.HasPrefix(string(h), prefix) {
			matches = append(matches, h)
		}
	}
	return matches, nil
}

// ResolveCommit expands a full or abbreviated commit hash.
func (s *ObjectStore) ResolveCommit(prefix string) (Hash, error) {
	matches, err := s.CommitsWithPrefix(prefix)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d commits", ErrAmbiguousPrefix, prefix, len(matches))
	}
}

// CopyBlobTo copies a blob into dst unless dst already holds it.
func (s *ObjectStore) CopyBlobTo(dst *ObjectStore, h Hash) (bool, error) {
	copied, err := CopyFileIfAbsent(s.BlobPath(h), dst.BlobPath(h))
	if err != nil {
		return false, fmt.Errorf("copy blob %s: %w", h.Short(), err)
	}
	return copied, nil
}

// CopyCommitTo copies a commit and every blob its manifest references into dst.
// Returns the number of objects actually written.
func (s *ObjectStore) CopyCommitTo(dst *ObjectStore, h Hash) (int, error) {
	c, err := s.GetCommit(h)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, path := range c.Paths() {
		copied, err := s.CopyBlobTo(dst, c.Files[path])
		if err != nil {
			return written, err
		}
		if copied {
			written++
		}
	}
	copied, err := CopyFileIfAbsent(s.CommitPath(h), dst.CommitPath(h))
	if err != nil {
		return written, fmt.Errorf("copy commit %s: %w", h.Short(), err)
	}
	if copied {
		written++
	}
	return written, nil
}

// Verify re-hashes every stored object and returns the hashes whose content no
// longer matches their name. The CID computed from the content is compared
// against the CID the name implies.
func (s *ObjectStore) Verify() ([]Hash, error) {
	var corrupt []Hash
	for _, dir := range []string{s.blobs, s.commits} {
		hashes, err := listObjects(dir)
		if err != nil {
			return nil, err
		}
		for _, h := range hashes {
			data, err := os.ReadFile(filepath.Join(dir, string(h)))
			if err != nil {
				return nil, fmt.Errorf("read object %s: %w", h, err)
			}
			got, err := ComputeCID(data)
			if err != nil {
				return nil, err
			}
			want, err := h.CID()
			if err != nil || !got.Equals(want) {
				corrupt = append(corrupt, h)
			}
		}
	}
	sort.Slice(corrupt, func(i, j int) bool { return corrupt[i] < corrupt[j] })
	return corrupt, nil
}
