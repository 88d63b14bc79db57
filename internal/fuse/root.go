// Package fuse mounts a read-only view of a gitlite repository: the HEAD
// commit, the tree of every branch and remote-tracking ref, any commit by
// hash prefix, and the first-parent log.
package fuse

import (
	"context"
	"hash/fnv"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/gitlite/internal/repo"
)

// RootNode is the mountpoint directory. Contains "HEAD", "branches/",
// "tracking/", "commits/" and "log/".
type RootNode struct {
	fs.Inode
	repo *repo.Repository
}

var _ = (fs.NodeOnAdder)((*RootNode)(nil))
var _ = (fs.NodeGetattrer)((*RootNode)(nil))

func (r *RootNode) OnAdd(ctx context.Context) {
	head := &TextFile{ino: stableIno("HEAD"), render: func() ([]byte, error) {
		h, err := r.repo.HeadCommit()
		if err != nil {
			return nil, err
		}
		return []byte(h.String() + "\n"), nil
	}}
	r.AddChild("HEAD", r.NewPersistentInode(ctx, head, fs.StableAttr{
		Mode: syscall.S_IFREG,
		Ino:  head.ino,
	}), true)

	dirs := []struct {
		name string
		node fs.InodeEmbedder
	}{
		{"branches", &RefsDir{repo: r.repo, refs: r.repo.Branches, base: "branches"}},
		{"tracking", &RefsDir{repo: r.repo, refs: r.repo.Tracking, base: "tracking"}},
		{"commits", &CommitsDir{repo: r.repo}},
		{"log", &LogDir{repo: r.repo}},
	}
	for _, d := range dirs {
		r.AddChild(d.name, r.NewPersistentInode(ctx, d.node, fs.StableAttr{
			Mode: syscall.S_IFDIR,
			Ino:  stableIno(d.name),
		}), true)
	}
}

func (r *RootNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("/")
	return fs.OK
}

// stableIno returns a stable inode number for a given path string.
func stableIno(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

// readAt returns the slice of data a read of size n at off should see.
func readAt(data []byte, n int, off int64) []byte {
	if off >= int64(len(data)) {
		return nil
	}
	end := off + int64(n)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[off:end]
}

// TextFile is a small read-only file whose content is rendered on demand.
type TextFile struct {
	fs.Inode
	ino    uint64
	render func() ([]byte, error)
}

var _ = (fs.NodeGetattrer)((*TextFile)(nil))
var _ = (fs.NodeOpener)((*TextFile)(nil))
var _ = (fs.NodeReader)((*TextFile)(nil))

func (f *TextFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	data, err := f.render()
	if err != nil {
		return syscall.EIO
	}
	out.Mode = 0444
	out.Size = uint64(len(data))
	out.Ino = f.ino
	return fs.OK
}

func (f *TextFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_DIRECT_IO, fs.OK
}

func (f *TextFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.render()
	if err != nil {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(readAt(data, len(dest), off)), fs.OK
}
