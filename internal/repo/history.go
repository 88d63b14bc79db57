package repo

import (
	"github.com/systemshift/gitlite/internal/dag"
)

// Log returns the first-parent chain from HEAD back to the root commit.
func (r *Repository) Log() ([]dag.Entry, error) {
	h, err := r.HeadCommit()
	if err != nil {
		return nil, newError("log", err)
	}
	entries, err := r.Graph.Log(h, 0)
	if err != nil {
		return nil, newError("log", err)
	}
	return entries, nil
}

// GlobalLog returns every stored commit in store order.
func (r *Repository) GlobalLog() ([]dag.Entry, error) {
	hashes, err := r.Store.Commits()
	if err != nil {
		return nil, newError("global-log", err)
	}
	return r.entries("global-log", hashes)
}

func (r *Repository) entries(op string, hashes []dag.Hash) ([]dag.Entry, error) {
	out := make([]dag.Entry, 0, len(hashes))
	for _, h := range hashes {
		c, err := r.Store.GetCommit(h)
		if err != nil {
			return nil, newError(op, err)
		}
		out = append(out, dag.Entry{Hash: h, Commit: c})
	}
	return out, nil
}

// Find returns the commits whose message is exactly message.
func (r *Repository) Find(message string) ([]dag.Hash, error) {
	idx, err := dag.BuildMessageIndex(r.Store)
	if err != nil {
		return nil, newError("find", err)
	}
	hashes := idx.Exact(message)
	if len(hashes) == 0 {
		return nil, newError("find", ErrNotFound)
	}
	return hashes, nil
}

// Search returns up to limit commits ranked by how many query terms their
// message contains. A limit of zero returns every match.
func (r *Repository) Search(query string, limit int) ([]dag.Entry, error) {
	idx, err := dag.BuildMessageIndex(r.Store)
	if err != nil {
		return nil, newError("search", err)
	}
	return r.entries("search", idx.Search(query, limit))
}

// Detail is a commit together with its changes against its first parent.
type Detail struct {
	dag.Entry
	Changes dag.Changes
}

// Show resolves a full or abbreviated commit hash and describes it.
func (r *Repository) Show(prefix string) (*Detail, error) {
	const op = "show"
	h, err := r.resolveCommit(prefix)
	if err != nil {
		return nil, newError(op, err).withPath(prefix)
	}
	c, err := r.Store.GetCommit(h)
	if err != nil {
		return nil, newError(op, err)
	}
	var parentFiles map[string]dag.Hash
	if p := c.FirstParent(); !p.IsZero() {
		parent, err := r.Store.GetCommit(p)
		if err != nil {
			return nil, newError(op, err)
		}
		parentFiles = parent.Files
	}
	return &Detail{
		Entry:   dag.Entry{Hash: h, Commit: c},
		Changes: dag.DiffManifests(parentFiles, c.Files),
	}, nil
}

// RefLog returns the journal of ref moves, newest first. An empty ref
// returns all of them; ref names are "HEAD", "branches/<name>" or
// "tracking/<remote>/<branch>".
func (r *Repository) RefLog(ref string) ([]dag.ReflogEntry, error) {
	entries, err := r.Reflog.Entries(ref)
	if err != nil {
		return nil, newError("reflog", err)
	}
	return entries, nil
}

// Verify re-hashes the object store and returns the corrupt objects.
func (r *Repository) Verify() ([]dag.Hash, error) {
	bad, err := r.Store.Verify()
	if err != nil {
		return nil, newError("fsck", err)
	}
	if len(bad) > 0 {
		r.log.Warn("corrupt objects", "count", len(bad))
	}
	return bad, nil
}
