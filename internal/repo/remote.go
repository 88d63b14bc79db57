package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemshift/gitlite/internal/dag"
)

// RemoteInfo is a registered remote.
type RemoteInfo struct {
	Name string
	Path string
}

// PushResult describes a completed push.
type PushResult struct {
	Branch  string
	Old     dag.Hash // remote tip before the push
	New     dag.Hash
	Commits int // future commits sent
	Objects int // objects actually written on the remote
}

// FetchResult describes a completed fetch.
type FetchResult struct {
	Ref     string // remote-tracking ref, "<remote>/<branch>"
	Tip     dag.Hash
	Objects int
}

// AddRemote registers path, the repository directory of another
// repository, under name. A relative path is resolved against the working
// tree root when used.
func (r *Repository) AddRemote(name, path string) error {
	const op = "add-remote"
	if !dag.ValidRefName(name) || strings.Contains(name, "/") {
		return newError(op, ErrInvalidName).withPath(name)
	}
	if r.Remotes.Has(name) {
		return newError(op, ErrRemoteExists).withPath(name)
	}
	if err := r.Remotes.Set(name, filepath.Clean(path)); err != nil {
		return newError(op, err).withPath(name)
	}
	r.log.Info("added remote", "remote", name, "path", path)
	return nil
}

// RemoveRemote unregisters name and drops its remote-tracking refs.
func (r *Repository) RemoveRemote(name string) error {
	const op = "rm-remote"
	if !r.Remotes.Has(name) {
		return newError(op, ErrNoSuchRemote).withPath(name)
	}
	if err := r.Remotes.Delete(name); err != nil {
		return newError(op, err).withPath(name)
	}
	refs, err := r.Tracking.List()
	if err != nil {
		return newError(op, err)
	}
	for _, ref := range refs {
		if strings.HasPrefix(ref, name+"/") {
			if err := r.Tracking.Delete(ref); err != nil {
				return newError(op, err).withPath(ref)
			}
		}
	}
	r.log.Info("removed remote", "remote", name)
	return nil
}

// ListRemotes returns the registered remotes sorted by name.
func (r *Repository) ListRemotes() ([]RemoteInfo, error) {
	names, err := r.Remotes.List()
	if err != nil {
		return nil, newError("remote", err)
	}
	out := make([]RemoteInfo, 0, len(names))
	for _, name := range names {
		path, err := r.Remotes.Get(name)
		if err != nil {
			return nil, newError("remote", err).withPath(name)
		}
		out = append(out, RemoteInfo{Name: name, Path: path})
	}
	return out, nil
}

// openRemote opens the repository registered as name, without a working tree.
func (r *Repository) openRemote(name string) (*Repository, error) {
	path, err := r.Remotes.Get(name)
	if errors.Is(err, dag.ErrRefNotFound) {
		return nil, ErrNoSuchRemote
	}
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.root, path)
	}
	info, err := os.Stat(filepath.Join(path, headFile))
	if err != nil || info.IsDir() {
		return nil, ErrRemoteUnreachable
	}
	return openDir("", path, WithLogger(r.log.With("remote", name)), WithClock(r.now))
}

// transfer copies head and every ancestor missing from dst, parents before
// children. Commits already in dst are assumed to have complete history.
func transfer(src, dst *dag.ObjectStore, head dag.Hash) (int, error) {
	seen := make(map[dag.Hash]bool)
	written := 0
	var visit func(h dag.Hash) error
	visit = func(h dag.Hash) error {
		if seen[h] || dst.HasCommit(h) {
			return nil
		}
		seen[h] = true
		c, err := src.GetCommit(h)
		if err != nil {
			return err
		}
		for _, p := range c.Parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		n, err := src.CopyCommitTo(dst, h)
		written += n
		return err
	}
	err := visit(head)
	return written, err
}

// Push sends the current commit to branch on remote. The remote tip must be
// an ancestor of HEAD; a missing remote branch counts as the root commit.
func (r *Repository) Push(remote, branch string) (*PushResult, error) {
	const op = "push"
	dst, err := r.openRemote(remote)
	if err != nil {
		return nil, newError(op, err).withPath(remote)
	}
	local, err := r.HeadCommit()
	if err != nil {
		return nil, newError(op, err)
	}
	remoteTip, err := dst.Branches.Get(branch)
	if errors.Is(err, dag.ErrRefNotFound) {
		remoteTip = dag.RootHash()
	} else if err != nil {
		return nil, newError(op, err).withPath(branch)
	}

	res := &PushResult{Branch: branch, Old: remoteTip, New: local}
	if local == remoteTip {
		return res, nil
	}
	future, err := r.Graph.Future(local, remoteTip)
	if err != nil {
		return nil, newError(op, err)
	}
	if len(future) == 0 {
		return nil, newError(op, ErrNonFastForward).withPath(remote + "/" + branch)
	}
	res.Commits = len(future)
	if res.Objects, err = transfer(r.Store, dst.Store, local); err != nil {
		return nil, newError(op, err)
	}
	if err := dst.setRef(dst.Branches, branch, local, "push"); err != nil {
		return nil, newError(op, err).withPath(branch)
	}
	r.log.Info("pushed", "remote", remote, "branch", branch, "commits", res.Commits, "objects", res.Objects)
	return res, nil
}

// Fetch copies branch of remote and its history into the local store and
// records its tip as the remote-tracking ref "<remote>/<branch>".
func (r *Repository) Fetch(remote, branch string) (*FetchResult, error) {
	const op = "fetch"
	src, err := r.openRemote(remote)
	if err != nil {
		return nil, newError(op, err).withPath(remote)
	}
	tip, err := src.Branches.Get(branch)
	if errors.Is(err, dag.ErrRefNotFound) {
		return nil, newError(op, ErrNoSuchRemoteBranch).withPath(remote + "/" + branch)
	}
	if err != nil {
		return nil, newError(op, err).withPath(branch)
	}
	res := &FetchResult{Ref: remote + "/" + branch, Tip: tip}
	if res.Objects, err = transfer(src.Store, r.Store, tip); err != nil {
		return nil, newError(op, err)
	}
	if err := r.setRef(r.Tracking, res.Ref, tip, "fetch"); err != nil {
		return nil, newError(op, err).withPath(res.Ref)
	}
	r.log.Info("fetched", "ref", res.Ref, "tip", tip.Short(), "objects", res.Objects)
	return res, nil
}

// Pull fetches branch of remote and merges its remote-tracking ref.
func (r *Repository) Pull(remote, branch string) (*MergeResult, error) {
	f, err := r.Fetch(remote, branch)
	if err != nil {
		return nil, err
	}
	return r.Merge(f.Ref)
}
