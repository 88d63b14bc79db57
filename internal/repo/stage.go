package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/worktree"
)

const stageVersion = 1

// Stage holds the changes pending for the next commit. A path is never in
// both Addition and Removal.
type Stage struct {
	Addition map[string]dag.Hash
	Removal  map[string]bool
}

type stageFileV1 struct {
	V        int                 `json:"v"`
	Addition map[string]dag.Hash `json:"addition"`
	Removal  []string            `json:"removal"`
}

func newStage() *Stage {
	return &Stage{Addition: make(map[string]dag.Hash), Removal: make(map[string]bool)}
}

// Empty reports whether nothing is staged.
func (s *Stage) Empty() bool { return len(s.Addition) == 0 && len(s.Removal) == 0 }

func (s *Stage) add(path string, h dag.Hash) {
	delete(s.Removal, path)
	s.Addition[path] = h
}

func (s *Stage) remove(path string) {
	delete(s.Addition, path)
	s.Removal[path] = true
}

func (s *Stage) unstage(path string) {
	delete(s.Addition, path)
	delete(s.Removal, path)
}

// Added returns the paths staged for addition, sorted.
func (s *Stage) Added() []string {
	paths := make([]string, 0, len(s.Addition))
	for p := range s.Addition {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Removed returns the paths staged for removal, sorted.
func (s *Stage) Removed() []string {
	paths := make([]string, 0, len(s.Removal))
	for p := range s.Removal {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// apply returns the manifest that results from applying the stage to files.
func (s *Stage) apply(files map[string]dag.Hash) map[string]dag.Hash {
	out := make(map[string]dag.Hash, len(files)+len(s.Addition))
	for p, h := range files {
		out[p] = h
	}
	for p, h := range s.Addition {
		out[p] = h
	}
	for p := range s.Removal {
		delete(out, p)
	}
	return out
}

func (r *Repository) stagePath() string { return filepath.Join(r.dir, stageFile) }

// LoadStage reads the staging area. A missing or empty file is an empty stage.
func (r *Repository) LoadStage() (*Stage, error) {
	data, err := os.ReadFile(r.stagePath())
	if errors.Is(err, os.ErrNotExist) {
		return newStage(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stage: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return newStage(), nil
	}
	var f stageFileV1
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode stage: %w", err)
	}
	if f.V != stageVersion {
		return nil, fmt.Errorf("decode stage: unsupported version %d", f.V)
	}
	s := newStage()
	for p, h := range f.Addition {
		s.Addition[p] = h
	}
	for _, p := range f.Removal {
		s.Removal[p] = true
	}
	return s, nil
}

func (r *Repository) saveStage(s *Stage) error {
	f := stageFileV1{V: stageVersion, Addition: s.Addition, Removal: s.Removed()}
	if f.Addition == nil {
		f.Addition = map[string]dag.Hash{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode stage: %w", err)
	}
	if err := dag.SafeWrite(r.stagePath(), data, 0644); err != nil {
		return fmt.Errorf("write stage: %w", err)
	}
	return nil
}

func (r *Repository) clearStage() error { return r.saveStage(newStage()) }

// Add stages the working copy of path. If the content equals the version in
// the current commit, any staged addition or removal of path is dropped.
func (r *Repository) Add(path string) error {
	const op = "add"
	rel, err := r.Tree.Normalize(path)
	if errors.Is(err, worktree.ErrInvalidPath) {
		return newError(op, ErrInvalidPath).withPath(fmt.Sprintf("%q", path))
	}
	if err != nil || !r.Tree.Exists(rel) {
		return newError(op, ErrFileNotFound).withPath(path)
	}
	data, err := r.Tree.Read(rel)
	if err != nil {
		return newError(op, err).withPath(rel)
	}
	_, cur, err := r.current()
	if err != nil {
		return newError(op, err)
	}
	s, err := r.LoadStage()
	if err != nil {
		return newError(op, err)
	}

	h, err := dag.Sum(data)
	if err != nil {
		return newError(op, err)
	}
	if tracked, ok := cur.Blob(rel); ok && tracked == h {
		s.unstage(rel)
	} else {
		if _, err := r.Store.PutBlob(data); err != nil {
			return newError(op, err).withPath(rel)
		}
		s.add(rel, h)
	}
	if err := r.saveStage(s); err != nil {
		return newError(op, err)
	}
	r.log.Debug("staged", "path", rel, "blob", h.Short())
	return nil
}

// Rm unstages path if it is staged for addition. If path is tracked by the
// current commit it is staged for removal and deleted from the working tree.
func (r *Repository) Rm(path string) error {
	const op = "rm"
	rel, err := r.Tree.Normalize(path)
	if err != nil {
		return newError(op, ErrNothingToRemove).withPath(path)
	}
	_, cur, err := r.current()
	if err != nil {
		return newError(op, err)
	}
	s, err := r.LoadStage()
	if err != nil {
		return newError(op, err)
	}

	_, staged := s.Addition[rel]
	tracked := cur.Tracks(rel)
	if !staged && !tracked {
		return newError(op, ErrNothingToRemove).withPath(rel)
	}
	if tracked {
		s.remove(rel)
	} else {
		delete(s.Addition, rel)
	}
	if err := r.saveStage(s); err != nil {
		return newError(op, err)
	}
	if tracked {
		if err := r.Tree.Remove(rel); err != nil {
			return newError(op, err).withPath(rel)
		}
	}
	r.log.Debug("unstaged", "path", rel, "tracked", tracked)
	return nil
}
