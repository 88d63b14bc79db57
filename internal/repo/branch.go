package repo

import (
	"github.com/systemshift/gitlite/internal/dag"
)

// BranchInfo is a branch name and its tip.
type BranchInfo struct {
	Name    string
	Tip     dag.Hash
	Current bool
}

// Branch creates branch name at the current commit. HEAD does not move.
func (r *Repository) Branch(name string) error {
	h, err := r.HeadCommit()
	if err != nil {
		return newError("branch", err)
	}
	return r.CreateBranch(name, h, "branch: created at "+h.Short())
}

// CreateBranch creates branch name pointing at the stored commit h.
func (r *Repository) CreateBranch(name string, h dag.Hash, action string) error {
	const op = "branch"
	if !dag.ValidRefName(name) {
		return newError(op, ErrInvalidName).withPath(name)
	}
	if r.Branches.Has(name) {
		return newError(op, ErrBranchExists).withPath(name)
	}
	if !r.Store.HasCommit(h) {
		return newError(op, ErrNoSuchCommit).withPath(h.Short())
	}
	if err := r.setRef(r.Branches, name, h, action); err != nil {
		return newError(op, err).withPath(name)
	}
	r.log.Info("created branch", "branch", name, "commit", h.Short())
	return nil
}

// RemoveBranch deletes the branch pointer. Commits are left in place.
func (r *Repository) RemoveBranch(name string) error {
	const op = "rm-branch"
	if !r.Branches.Has(name) {
		return newError(op, ErrNoSuchBranch).withPath(name)
	}
	head, err := r.Head.Read()
	if err != nil {
		return newError(op, err)
	}
	if !head.Detached() && head.Branch == name {
		return newError(op, ErrRemoveCurrentBranch).withPath(name)
	}
	old, err := r.Branches.Get(name)
	if err != nil {
		return newError(op, err).withPath(name)
	}
	if err := r.Branches.Delete(name); err != nil {
		return newError(op, err).withPath(name)
	}
	r.journal(branchDir+"/"+name, old, "", "branch: deleted")
	r.log.Info("removed branch", "branch", name)
	return nil
}

// ListBranches returns the local branches sorted by name.
func (r *Repository) ListBranches() ([]BranchInfo, error) {
	return r.listRefs("branch", r.Branches, true)
}

// ListTracking returns the remote-tracking refs sorted by name.
func (r *Repository) ListTracking() ([]BranchInfo, error) {
	return r.listRefs("branch", r.Tracking, false)
}

func (r *Repository) listRefs(op string, refs *dag.RefStore, local bool) ([]BranchInfo, error) {
	head, err := r.Head.Read()
	if err != nil {
		return nil, newError(op, err)
	}
	names, err := refs.List()
	if err != nil {
		return nil, newError(op, err)
	}
	out := make([]BranchInfo, 0, len(names))
	for _, name := range names {
		tip, err := refs.Get(name)
		if err != nil {
			return nil, newError(op, err).withPath(name)
		}
		out = append(out, BranchInfo{
			Name:    name,
			Tip:     tip,
			Current: local && !head.Detached() && head.Branch == name,
		})
	}
	return out, nil
}
