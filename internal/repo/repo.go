// Package repo implements the version-control operations of a gitlite
// repository on top of the content-addressed store in package dag.
package repo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/systemshift/gitlite/internal/config"
	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/worktree"
)

// DirName is the repository directory created at the working-tree root.
const DirName = ".gitlite"

const (
	headFile   = "HEAD"
	stageFile  = "stage"
	branchDir  = "branches"
	trackDir   = "tracking"
	remoteDir  = "remotes"
	reflogFile = "logs/refs.jsonl"
)

// Repository is the top-level facade for a gitlite repository.
type Repository struct {
	root string // working-tree root, empty for a remote opened by path
	dir  string // repository directory

	Store    *dag.ObjectStore
	Graph    *dag.Graph
	Branches *dag.RefStore
	Tracking *dag.RefStore
	Remotes  *dag.RemoteStore
	Head     *dag.HeadFile
	Reflog   *dag.Reflog
	Config   *config.Config
	Tree     *worktree.Worktree

	log        *slog.Logger
	now        func() time.Time
	initBranch string
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// WithClock sets the time source for new commits.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithDefaultBranch sets the branch Init creates, overriding the
// configured default.
func WithDefaultBranch(name string) Option {
	return func(r *Repository) { r.initBranch = name }
}

// Init creates a repository in root with the root commit, the default
// branch pointing at it, and HEAD on that branch.
func Init(root string, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, newError("init", err)
	}
	dir := filepath.Join(abs, DirName)
	if _, err := os.Stat(dir); err == nil {
		return nil, newError("init", ErrAlreadyInitialized).withPath(dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, newError("init", fmt.Errorf("create %s: %w", dir, err))
	}
	cfg := config.Default()
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return nil, newError("init", err)
	}

	r, err := openDir(abs, dir, opts...)
	if err != nil {
		return nil, err
	}
	if r.initBranch != "" {
		if !dag.ValidRefName(r.initBranch) {
			return nil, newError("init", ErrInvalidName).withPath(r.initBranch)
		}
		r.Config.Core.DefaultBranch = r.initBranch
		if err := r.SaveConfig(); err != nil {
			return nil, newError("init", err)
		}
	}
	rootHash, err := r.Store.PutCommit(dag.RootCommit())
	if err != nil {
		return nil, newError("init", err)
	}
	branch := r.Config.Core.DefaultBranch
	if err := r.setRef(r.Branches, branch, rootHash, "init"); err != nil {
		return nil, newError("init", err)
	}
	if err := r.Head.SetBranch(branch); err != nil {
		return nil, newError("init", err)
	}
	if err := r.saveStage(newStage()); err != nil {
		return nil, newError("init", err)
	}
	r.log.Info("initialized repository", "dir", dir, "branch", branch, "root", rootHash.Short())
	return r, nil
}

// Open finds the repository containing start, walking up parent directories.
func Open(start string, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, newError("open", err)
	}
	for cur := abs; ; {
		dir := filepath.Join(cur, DirName)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return openDir(cur, dir, opts...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, newError("open", ErrNotRepository).withPath(abs)
		}
		cur = parent
	}
}

// openDir wires the stores of the repository directory dir. An empty root
// opens the repository without a working tree.
func openDir(root, dir string, opts ...Option) (*Repository, error) {
	r := &Repository{
		root: root,
		dir:  dir,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, newError("open", err)
	}
	r.Config = cfg

	if r.Store, err = dag.NewObjectStore(dir, cfg.Cache.Commits); err != nil {
		return nil, newError("open", err)
	}
	r.Graph = dag.NewGraph(r.Store)
	if r.Branches, err = dag.NewRefStore(filepath.Join(dir, branchDir)); err != nil {
		return nil, newError("open", err)
	}
	if r.Tracking, err = dag.NewRefStore(filepath.Join(dir, trackDir)); err != nil {
		return nil, newError("open", err)
	}
	if r.Remotes, err = dag.NewRemoteStore(filepath.Join(dir, remoteDir)); err != nil {
		return nil, newError("open", err)
	}
	if r.Reflog, err = dag.NewReflog(filepath.Join(dir, filepath.FromSlash(reflogFile))); err != nil {
		return nil, newError("open", err)
	}
	r.Head = dag.NewHeadFile(filepath.Join(dir, headFile))

	if root != "" {
		ignore, err := worktree.NewMatcher(cfg.Ignore)
		if err != nil {
			return nil, newError("open", err)
		}
		if r.Tree, err = worktree.New(root, filepath.Base(dir), ignore); err != nil {
			return nil, newError("open", err)
		}
	}
	return r, nil
}

// Root returns the working-tree root.
func (r *Repository) Root() string { return r.root }

// Dir returns the repository directory.
func (r *Repository) Dir() string { return r.dir }

// Logger returns the repository logger.
func (r *Repository) Logger() *slog.Logger { return r.log }

// SaveConfig persists the current configuration.
func (r *Repository) SaveConfig() error {
	return config.Save(filepath.Join(r.dir, config.FileName), r.Config)
}

// HeadCommit returns the hash of the commit HEAD resolves to.
func (r *Repository) HeadCommit() (dag.Hash, error) {
	head, err := r.Head.Read()
	if err != nil {
		return "", err
	}
	if head.Detached() {
		return head.Commit, nil
	}
	h, err := r.Branches.Get(head.Branch)
	if err != nil {
		return "", fmt.Errorf("resolve HEAD branch %s: %w", head.Branch, err)
	}
	return h, nil
}

// current returns the HEAD commit and its hash.
func (r *Repository) current() (dag.Hash, *dag.Commit, error) {
	h, err := r.HeadCommit()
	if err != nil {
		return "", nil, err
	}
	c, err := r.Store.GetCommit(h)
	if err != nil {
		return "", nil, err
	}
	return h, c, nil
}

// currentName returns the branch HEAD is on, or the short commit hash when
// HEAD is detached.
func (r *Repository) currentName() (string, error) {
	head, err := r.Head.Read()
	if err != nil {
		return "", err
	}
	if head.Detached() {
		return head.Commit.Short(), nil
	}
	return head.Branch, nil
}

// setRef moves name in refs to h and journals the move.
func (r *Repository) setRef(refs *dag.RefStore, name string, h dag.Hash, action string) error {
	old, err := refs.Get(name)
	if err != nil && !errors.Is(err, dag.ErrRefNotFound) {
		return err
	}
	if err := refs.Set(name, h); err != nil {
		return err
	}
	prefix := branchDir
	if refs == r.Tracking {
		prefix = trackDir
	}
	r.journal(prefix+"/"+name, old, h, action)
	return nil
}

// moveHead advances whatever HEAD points at to h: the current branch, or
// HEAD itself when detached.
func (r *Repository) moveHead(h dag.Hash, action string) error {
	head, err := r.Head.Read()
	if err != nil {
		return err
	}
	if !head.Detached() {
		return r.setRef(r.Branches, head.Branch, h, action)
	}
	if err := r.Head.Detach(h); err != nil {
		return err
	}
	r.journal(headFile, head.Commit, h, action)
	return nil
}

// journal records a ref move. The ref has already moved, so a failed
// append is only logged.
func (r *Repository) journal(ref string, old, h dag.Hash, action string) {
	err := r.Reflog.Append(dag.ReflogEntry{
		Time:   r.now().UTC(),
		Ref:    ref,
		Old:    old,
		New:    h,
		Action: action,
	})
	if err != nil {
		r.log.Warn("reflog append failed", "ref", ref, "error", err)
	}
}

// resolveCommit expands an abbreviated commit hash.
func (r *Repository) resolveCommit(prefix string) (dag.Hash, error) {
	h, err := r.Store.ResolveCommit(prefix)
	switch {
	case errors.Is(err, dag.ErrAmbiguousPrefix):
		return "", ErrAmbiguousCommit
	case errors.Is(err, dag.ErrObjectNotFound):
		return "", ErrNoSuchCommit
	case err != nil:
		return "", err
	}
	return h, nil
}
