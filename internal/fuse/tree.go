package fuse

import (
	"context"
	"sort"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/gitlite/internal/dag"
)

// TreeEntry is one name inside a directory of a commit manifest.
type TreeEntry struct {
	Name  string
	IsDir bool
	Blob  dag.Hash // set for files
}

// listTree returns the entries directly under dir ("" for the top level) of
// a flat manifest, sorted by name. Nested paths surface as directories.
func listTree(files map[string]dag.Hash, dir string) []TreeEntry {
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := make(map[string]bool)
	var out []TreeEntry
	for p, h := range files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		e := TreeEntry{Name: name, IsDir: nested}
		if !nested {
			e.Blob = h
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TreeDir is a directory inside the manifest of one commit.
type TreeDir struct {
	fs.Inode
	store  *dag.ObjectStore
	commit dag.Hash
	files  map[string]dag.Hash
	mtime  uint64
	dir    string
}

var _ = (fs.NodeLookuper)((*TreeDir)(nil))
var _ = (fs.NodeReaddirer)((*TreeDir)(nil))
var _ = (fs.NodeGetattrer)((*TreeDir)(nil))

func newTreeDir(store *dag.ObjectStore, h dag.Hash) (*TreeDir, error) {
	c, err := store.GetCommit(h)
	if err != nil {
		return nil, err
	}
	return &TreeDir{store: store, commit: h, files: c.Files, mtime: uint64(c.Timestamp)}, nil
}

func (d *TreeDir) key(name string) string {
	if d.dir == "" {
		return string(d.commit) + ":" + name
	}
	return string(d.commit) + ":" + d.dir + "/" + name
}

func (d *TreeDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Mtime = d.mtime
	out.Ino = stableIno(string(d.commit) + ":" + d.dir)
	return fs.OK
}

func (d *TreeDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	list := listTree(d.files, d.dir)
	entries := make([]fuse.DirEntry, len(list))
	for i, e := range list {
		mode := uint32(syscall.S_IFREG)
		if e.IsDir {
			mode = syscall.S_IFDIR
		}
		entries[i] = fuse.DirEntry{Name: e.Name, Mode: mode, Ino: stableIno(d.key(e.Name))}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *TreeDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	for _, e := range listTree(d.files, d.dir) {
		if e.Name != name {
			continue
		}
		if e.IsDir {
			sub := &TreeDir{store: d.store, commit: d.commit, files: d.files, mtime: d.mtime, dir: strings.TrimPrefix(d.dir+"/"+name, "/")}
			return d.NewInode(ctx, sub, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: stableIno(d.key(name))}), fs.OK
		}
		f := &BlobFile{store: d.store, blob: e.Blob, mtime: d.mtime}
		return d.NewInode(ctx, f, fs.StableAttr{Mode: syscall.S_IFREG, Ino: stableIno(d.key(name))}), fs.OK
	}
	return nil, syscall.ENOENT
}

// BlobFile exposes one stored blob. Its content never changes.
type BlobFile struct {
	fs.Inode
	store *dag.ObjectStore
	blob  dag.Hash
	mtime uint64
}

var _ = (fs.NodeGetattrer)((*BlobFile)(nil))
var _ = (fs.NodeOpener)((*BlobFile)(nil))
var _ = (fs.NodeReader)((*BlobFile)(nil))

func (f *BlobFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	data, err := f.store.GetBlob(f.blob)
	if err != nil {
		return syscall.ENOENT
	}
	out.Mode = 0444
	out.Size = uint64(len(data))
	out.Mtime = f.mtime
	return fs.OK
}

func (f *BlobFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (f *BlobFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.store.GetBlob(f.blob)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return fuse.ReadResultData(readAt(data, len(dest), off)), fs.OK
}
