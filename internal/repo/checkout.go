package repo

import (
	"fmt"
	"path"
	"sort"

	"github.com/systemshift/gitlite/internal/dag"
)

// untracked returns the working files that are staged for removal, or that
// are neither staged for addition nor tracked by cur. Ignored files are
// included: ignore patterns hide files from status, not from overwrite
// protection.
func (r *Repository) untracked(cur *dag.Commit, s *Stage) (map[string]bool, error) {
	files, err := r.Tree.ListAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, p := range files {
		if isUntracked(cur, s, p) {
			out[p] = true
		}
	}
	return out, nil
}

func isUntracked(cur *dag.Commit, s *Stage, p string) bool {
	_, staged := s.Addition[p]
	return s.Removal[p] || (!staged && !cur.Tracks(p))
}

// collisions returns the untracked paths that writes would overwrite, sorted.
// A write also collides with an untracked file at one of its parent
// directories, and with untracked files below it when it replaces a
// directory with a file.
func collisions(untracked map[string]bool, writes []string) []string {
	below := make(map[string][]string)
	for u := range untracked {
		for d := path.Dir(u); d != "."; d = path.Dir(d) {
			below[d] = append(below[d], u)
		}
	}
	hit := make(map[string]bool)
	for _, p := range writes {
		if untracked[p] {
			hit[p] = true
		}
		for _, u := range below[p] {
			hit[u] = true
		}
		for d := path.Dir(p); d != "."; d = path.Dir(d) {
			if untracked[d] {
				hit[d] = true
			}
		}
	}
	out := make([]string, 0, len(hit))
	for p := range hit {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// checkPaths rejects manifest paths that escape the working tree or point
// into the repository directory. Commits fetched from another repository or
// imported from git are not trusted to be well formed.
func (r *Repository) checkPaths(op string, paths []string) error {
	for _, p := range paths {
		if err := r.Tree.Check(p); err != nil {
			return newError(op, fmt.Errorf("%w: %w", ErrInvalidPath, err)).withPath(fmt.Sprintf("%q", p))
		}
	}
	return nil
}

func collisionError(op string, paths []string) error {
	e := newError(op, ErrUntrackedCollision)
	e.Paths = paths
	return e
}

// checkoutCommit replaces the tracked working files with the manifest of
// target and clears the stage. Nothing is touched if an untracked file is
// in the way or target references a missing blob.
func (r *Repository) checkoutCommit(op string, target dag.Hash) error {
	_, cur, err := r.current()
	if err != nil {
		return newError(op, err)
	}
	s, err := r.LoadStage()
	if err != nil {
		return newError(op, err)
	}
	next, err := r.Store.GetCommit(target)
	if err != nil {
		return newError(op, err)
	}
	if err := r.checkPaths(op, next.Paths()); err != nil {
		return err
	}
	untracked, err := r.untracked(cur, s)
	if err != nil {
		return newError(op, err)
	}
	if hit := collisions(untracked, next.Paths()); len(hit) > 0 {
		return collisionError(op, hit)
	}
	for _, p := range next.Paths() {
		if !r.Store.HasBlob(next.Files[p]) {
			return newError(op, fmt.Errorf("%w: blob %s for %s", dag.ErrObjectNotFound, next.Files[p].Short(), p))
		}
	}

	files, err := r.Tree.ListAll()
	if err != nil {
		return newError(op, err)
	}
	for _, p := range files {
		if untracked[p] {
			continue
		}
		if err := r.Tree.Remove(p); err != nil {
			return newError(op, err).withPath(p)
		}
	}
	if err := r.writeManifest(next); err != nil {
		return newError(op, err)
	}
	if err := r.clearStage(); err != nil {
		return newError(op, err)
	}
	r.log.Debug("checked out commit", "commit", target.Short(), "files", len(next.Files))
	return nil
}

func (r *Repository) writeManifest(c *dag.Commit) error {
	for _, p := range c.Paths() {
		if err := r.writeBlob(p, c.Files[p]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) writeBlob(file string, h dag.Hash) error {
	data, err := r.Store.GetBlob(h)
	if err != nil {
		return err
	}
	return r.Tree.Write(file, data)
}

// CheckoutFile restores file from the current commit. The stage is not
// changed.
func (r *Repository) CheckoutFile(file string) error {
	const op = "checkout"
	rel, err := r.Tree.Normalize(file)
	if err != nil {
		return newError(op, ErrNotInCommit).withPath(file)
	}
	_, cur, err := r.current()
	if err != nil {
		return newError(op, err)
	}
	h, ok := cur.Blob(rel)
	if !ok {
		return newError(op, ErrNotInCommit).withPath(rel)
	}
	if err := r.writeBlob(rel, h); err != nil {
		return newError(op, err).withPath(rel)
	}
	return nil
}

// CheckoutFileInCommit restores file from the commit named by a full or
// abbreviated hash. Among the commits matching the prefix, only those that
// contain file are considered.
func (r *Repository) CheckoutFileInCommit(prefix, file string) error {
	const op = "checkout"
	rel, err := r.Tree.Normalize(file)
	if err != nil {
		return newError(op, ErrNotInCommit).withPath(file)
	}
	candidates, err := r.Store.CommitsWithPrefix(prefix)
	if err != nil {
		return newError(op, err)
	}
	if len(candidates) == 0 {
		return newError(op, ErrNoSuchCommit).withPath(prefix)
	}
	var blob dag.Hash
	matches := 0
	for _, h := range candidates {
		c, err := r.Store.GetCommit(h)
		if err != nil {
			return newError(op, err)
		}
		if b, ok := c.Blob(rel); ok {
			blob = b
			matches++
		}
	}
	switch {
	case matches == 0:
		return newError(op, ErrNotInCommit).withPath(rel)
	case matches > 1:
		return newError(op, ErrAmbiguousCommit).withPath(prefix)
	}
	if err := r.writeBlob(rel, blob); err != nil {
		return newError(op, err).withPath(rel)
	}
	return nil
}

// CheckoutBranch switches the working tree and HEAD to branch name. A
// remote-tracking name such as "origin/master" detaches HEAD at its tip.
func (r *Repository) CheckoutBranch(name string) error {
	const op = "checkout"
	head, err := r.Head.Read()
	if err != nil {
		return newError(op, err)
	}
	if !head.Detached() && head.Branch == name {
		return newError(op, ErrAlreadyOnBranch).withPath(name)
	}

	refs, detach := r.Branches, false
	if !r.Branches.Has(name) {
		if !r.Tracking.Has(name) {
			return newError(op, ErrNoSuchBranch).withPath(name)
		}
		refs, detach = r.Tracking, true
	}
	tip, err := refs.Get(name)
	if err != nil {
		return newError(op, err).withPath(name)
	}
	if err := r.checkoutCommit(op, tip); err != nil {
		return err
	}

	old, _ := r.HeadCommit()
	if detach {
		err = r.Head.Detach(tip)
	} else {
		err = r.Head.SetBranch(name)
	}
	if err != nil {
		return newError(op, err)
	}
	r.journal(headFile, old, tip, "checkout: moving to "+name)
	r.log.Info("switched", "to", name, "commit", tip.Short(), "detached", detach)
	return nil
}

// Reset checks out the commit named by a full or abbreviated hash and moves
// the current branch, or detached HEAD, to it.
func (r *Repository) Reset(prefix string) error {
	const op = "reset"
	h, err := r.resolveCommit(prefix)
	if err != nil {
		return newError(op, err).withPath(prefix)
	}
	if err := r.checkoutCommit(op, h); err != nil {
		return err
	}
	if err := r.moveHead(h, "reset: moving to "+h.Short()); err != nil {
		return newError(op, err)
	}
	r.log.Info("reset", "commit", h.Short())
	return nil
}
