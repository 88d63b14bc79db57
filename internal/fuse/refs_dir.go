package fuse

import (
	"context"
	"sort"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/repo"
)

// RefsDir lists the refs of one table. Each ref is a directory holding the
// tree of its tip; a nested name such as "origin/master" is a subdirectory.
type RefsDir struct {
	fs.Inode
	repo   *repo.Repository
	refs   *dag.RefStore
	base   string // mount-relative path of the table
	prefix string // namespace inside the table, "" or ending in "/"
}

var _ = (fs.NodeLookuper)((*RefsDir)(nil))
var _ = (fs.NodeReaddirer)((*RefsDir)(nil))
var _ = (fs.NodeGetattrer)((*RefsDir)(nil))

func (d *RefsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno(d.base + "/" + d.prefix)
	return fs.OK
}

// refChildren returns the first name component of every ref under prefix.
func refChildren(names []string, prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		child, _, _ := strings.Cut(n[len(prefix):], "/")
		if !seen[child] {
			seen[child] = true
			out = append(out, child)
		}
	}
	sort.Strings(out)
	return out
}

func (d *RefsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := d.refs.List()
	if err != nil {
		return nil, syscall.EIO
	}
	children := refChildren(names, d.prefix)
	entries := make([]fuse.DirEntry, len(children))
	for i, c := range children {
		entries[i] = fuse.DirEntry{
			Name: c,
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(d.base + "/" + d.prefix + c),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *RefsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	full := d.prefix + name
	if d.refs.Has(full) {
		tip, err := d.refs.Get(full)
		if err != nil {
			return nil, syscall.EIO
		}
		tree, err := newTreeDir(d.repo.Store, tip)
		if err != nil {
			return nil, syscall.EIO
		}
		return d.NewInode(ctx, tree, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: stableIno(string(tip) + ":")}), fs.OK
	}

	names, err := d.refs.List()
	if err != nil {
		return nil, syscall.EIO
	}
	if len(refChildren(names, full+"/")) == 0 {
		return nil, syscall.ENOENT
	}
	sub := &RefsDir{repo: d.repo, refs: d.refs, base: d.base, prefix: full + "/"}
	return d.NewInode(ctx, sub, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: stableIno(d.base + "/" + full)}), fs.OK
}

// CommitsDir lists every stored commit. Lookup accepts any unique prefix.
type CommitsDir struct {
	fs.Inode
	repo *repo.Repository
}

var _ = (fs.NodeLookuper)((*CommitsDir)(nil))
var _ = (fs.NodeReaddirer)((*CommitsDir)(nil))
var _ = (fs.NodeGetattrer)((*CommitsDir)(nil))

func (d *CommitsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("commits")
	return fs.OK
}

func (d *CommitsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	hashes, err := d.repo.Store.Commits()
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, len(hashes))
	for i, h := range hashes {
		entries[i] = fuse.DirEntry{
			Name: string(h),
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(string(h) + ":"),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *CommitsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	h, err := d.repo.Store.ResolveCommit(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	tree, err := newTreeDir(d.repo.Store, h)
	if err != nil {
		return nil, syscall.EIO
	}
	return d.NewInode(ctx, tree, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: stableIno(string(h) + ":")}), fs.OK
}
