package fuse

import (
	"context"
	"encoding/json"
	"strconv"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/gitlite/internal/dag"
	"github.com/systemshift/gitlite/internal/repo"
)

const maxLogEntries = 64

// LogDir exposes the first-parent history of HEAD as files.
// Layout: log/0 (HEAD commit JSON), log/1 (its first parent), ...
type LogDir struct {
	fs.Inode
	repo *repo.Repository
}

var _ = (fs.NodeLookuper)((*LogDir)(nil))
var _ = (fs.NodeReaddirer)((*LogDir)(nil))
var _ = (fs.NodeGetattrer)((*LogDir)(nil))

func (d *LogDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("log")
	return fs.OK
}

func (d *LogDir) history(limit int) ([]dag.Entry, error) {
	h, err := d.repo.HeadCommit()
	if err != nil {
		return nil, err
	}
	return d.repo.Graph.Log(h, limit)
}

func (d *LogDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	commits, err := d.history(maxLogEntries)
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, len(commits))
	for i, e := range commits {
		entries[i] = fuse.DirEntry{
			Name: strconv.Itoa(i),
			Mode: syscall.S_IFREG,
			Ino:  stableIno("log/" + string(e.Hash)),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *LogDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= maxLogEntries {
		return nil, syscall.ENOENT
	}
	commits, err := d.history(idx + 1)
	if err != nil {
		return nil, syscall.EIO
	}
	if idx >= len(commits) {
		return nil, syscall.ENOENT
	}

	data, err := commitJSON(commits[idx])
	if err != nil {
		return nil, syscall.EIO
	}
	f := &TextFile{
		ino:    stableIno("log/" + string(commits[idx].Hash)),
		render: func() ([]byte, error) { return data, nil },
	}
	return d.NewInode(ctx, f, fs.StableAttr{Mode: syscall.S_IFREG, Ino: f.ino}), fs.OK
}

type commitView struct {
	Hash      dag.Hash            `json:"hash"`
	CID       string              `json:"cid"`
	Message   string              `json:"message"`
	Timestamp int64               `json:"timestamp"`
	Parents   []dag.Hash          `json:"parents"`
	Files     map[string]dag.Hash `json:"files"`
}

// commitJSON returns indented JSON for a single commit.
func commitJSON(e dag.Entry) ([]byte, error) {
	data, err := json.MarshalIndent(commitView{
		Hash:      e.Hash,
		CID:       e.Hash.CIDString(),
		Message:   e.Commit.Message,
		Timestamp: e.Commit.Timestamp,
		Parents:   e.Commit.Parents,
		Files:     e.Commit.Files,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
