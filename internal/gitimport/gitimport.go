// Package gitimport replays the history of a git branch into a gitlite
// repository.
package gitimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/repo"
)

// ErrEmptyHistory is returned when the git branch has no commits.
var ErrEmptyHistory = errors.New("git branch has no commits")

// Import replays the first-parent chain of gitBranch in the git repository
// at gitDir, oldest first, as commits on top of the root commit, and points
// the new branch target at the last one. An empty gitBranch means the git
// HEAD. Only regular and executable files are imported.
// Returns the number of commits imported.
func Import(r *repo.Repository, gitDir, gitBranch, target string) (int, error) {
	if r.Branches.Has(target) {
		return 0, fmt.Errorf("import into %s: %w", target, repo.ErrBranchExists)
	}
	g, err := gogit.PlainOpen(gitDir)
	if err != nil {
		return 0, fmt.Errorf("open git repository %s: %w", gitDir, err)
	}
	tip, err := resolve(g, gitBranch)
	if err != nil {
		return 0, err
	}
	chain, err := firstParents(g, tip)
	if err != nil {
		return 0, err
	}
	if len(chain) == 0 {
		return 0, ErrEmptyHistory
	}

	parent := dag.RootHash()
	for _, gc := range chain {
		c, err := convert(r, gc, parent)
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", gc.Hash, err)
		}
		if parent, err = r.Store.PutCommit(c); err != nil {
			return 0, err
		}
		r.Logger().Debug("imported commit", "git", gc.Hash.String()[:7], "commit", parent.Short())
	}

	if err := r.CreateBranch(target, parent, "import: "+gitDir); err != nil {
		return 0, err
	}
	r.Logger().Info("imported git history", "branch", target, "commits", len(chain))
	return len(chain), nil
}

func resolve(g *gogit.Repository, branch string) (plumbing.Hash, error) {
	var (
		ref *plumbing.Reference
		err error
	)
	if branch == "" {
		ref, err = g.Head()
	} else {
		ref, err = g.Reference(plumbing.NewBranchReferenceName(branch), true)
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve git branch %q: %w", branch, err)
	}
	return ref.Hash(), nil
}

// firstParents returns the first-parent chain ending at tip, oldest first.
func firstParents(g *gogit.Repository, tip plumbing.Hash) ([]*object.Commit, error) {
	seen := make(map[plumbing.Hash]bool)
	var chain []*object.Commit
	for h := tip; !h.IsZero() && !seen[h]; {
		seen[h] = true
		c, err := g.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("read git commit %s: %w", h, err)
		}
		chain = append(chain, c)
		h = plumbing.ZeroHash
		if len(c.ParentHashes) > 0 {
			h = c.ParentHashes[0]
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// convert builds the gitlite commit for gc. Only regular and executable files
// are kept, and paths gitlite cannot check out (inside the repository
// directory, or not valid UTF-8) are skipped.
func convert(r *repo.Repository, gc *object.Commit, parent dag.Hash) (*dag.Commit, error) {
	tree, err := gc.Tree()
	if err != nil {
		return nil, err
	}
	files := make(map[string]dag.Hash)
	err = tree.Files().ForEach(func(f *object.File) error {
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		if err := r.Tree.Check(f.Name); err != nil {
			r.Logger().Warn("skipping path", "git", gc.Hash.String()[:7], "path", f.Name, "err", err)
			return nil
		}
		rd, err := f.Reader()
		if err != nil {
			return err
		}
		defer rd.Close()
		data, err := io.ReadAll(rd)
		if err != nil {
			return err
		}
		h, err := r.Store.PutBlob(data)
		if err != nil {
			return err
		}
		files[f.Name] = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := strings.ToValidUTF8(strings.TrimRight(gc.Message, "\n"), "\uFFFD")
	if strings.TrimSpace(msg) == "" {
		msg = "(no message)"
	}
	return &dag.Commit{
		V:         dag.CommitVersion,
		Message:   msg,
		Timestamp: gc.Author.When.Unix(),
		Parents:   []dag.Hash{parent},
		Files:     files,
	}, nil
}
