package repo

import (
	"github.com/systemshift/gitlite/internal/dag"
)

// FileState describes an unstaged change to a tracked or staged file.
type FileState string

const (
	StateModified FileState = "modified"
	StateDeleted  FileState = "deleted"
)

// Change is a path with an unstaged change.
type Change struct {
	Path  string
	State FileState
}

// Status is the state of the working tree against HEAD and the stage.
// Every list is sorted by path.
type Status struct {
	Branches  []BranchInfo
	Detached  dag.Hash // HEAD commit when detached
	Staged    []string
	Removed   []string
	Modified  []Change
	Untracked []string
}

// Status compares the working tree, the stage and the current commit.
func (r *Repository) Status() (*Status, error) {
	const op = "status"
	branches, err := r.ListBranches()
	if err != nil {
		return nil, err
	}
	head, err := r.Head.Read()
	if err != nil {
		return nil, newError(op, err)
	}
	_, cur, err := r.current()
	if err != nil {
		return nil, newError(op, err)
	}
	s, err := r.LoadStage()
	if err != nil {
		return nil, newError(op, err)
	}
	files, err := r.Tree.ListAll()
	if err != nil {
		return nil, newError(op, err)
	}

	st := &Status{
		Branches: branches,
		Staged:   s.Added(),
		Removed:  s.Removed(),
	}
	if head.Detached() {
		st.Detached = head.Commit
	}

	// Only tracked and staged files are hashed, ignored or not.
	present := make(map[string]dag.Hash)
	for _, p := range files {
		if _, staged := s.Addition[p]; !staged && !cur.Tracks(p) {
			continue
		}
		data, err := r.Tree.Read(p)
		if err != nil {
			return nil, newError(op, err).withPath(p)
		}
		h, err := dag.Sum(data)
		if err != nil {
			return nil, newError(op, err)
		}
		present[p] = h
	}

	// Expected content of each path: staged version first, then HEAD's.
	for _, p := range dag.UnionPaths(cur.Files, s.Addition) {
		if s.Removal[p] {
			continue
		}
		want, staged := s.Addition[p]
		if !staged {
			want = cur.Files[p]
		}
		got, ok := present[p]
		switch {
		case !ok:
			st.Modified = append(st.Modified, Change{Path: p, State: StateDeleted})
		case got != want:
			st.Modified = append(st.Modified, Change{Path: p, State: StateModified})
		}
	}

	visible, err := r.Tree.List()
	if err != nil {
		return nil, newError(op, err)
	}
	for _, p := range visible {
		if isUntracked(cur, s, p) {
			st.Untracked = append(st.Untracked, p)
		}
	}
	return st, nil
}
