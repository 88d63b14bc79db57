package dag

import (
	"fmt"
	"os"
	"strings"
)

const symbolicPrefix = "ref: branches/"

// Head is the current checkout position: a branch name, or a detached commit.
type Head struct {
	Branch string // set when HEAD is symbolic
	Commit Hash   // set when HEAD is detached
}

// Detached reports whether HEAD points directly at a commit.
func (h Head) Detached() bool { return h.Branch == "" }

func (h Head) String() string {
	if h.Detached() {
		return string(h.Commit)
	}
	return symbolicPrefix + h.Branch
}

// HeadFile reads and writes HEAD, a single-line file holding either
// "ref: branches/<name>" or a bare commit hash.
type HeadFile struct {
	path string
}

// NewHeadFile returns a HeadFile stored at path.
func NewHeadFile(path string) *HeadFile {
	return &HeadFile{path: path}
}

// Read parses HEAD.
func (f *HeadFile) Read() (Head, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Head{}, fmt.Errorf("read HEAD: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if name, ok := strings.CutPrefix(s, symbolicPrefix); ok {
		if !ValidRefName(name) {
			return Head{}, fmt.Errorf("HEAD names invalid branch %q", name)
		}
		return Head{Branch: name}, nil
	}
	h := Hash(s)
	if !h.Valid() {
		return Head{}, fmt.Errorf("HEAD holds malformed value %q", s)
	}
	return Head{Commit: h}, nil
}

// Write replaces HEAD.
func (f *HeadFile) Write(h Head) error {
	if err := SafeWrite(f.path, []byte(h.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// SetBranch makes HEAD a symbolic reference to branch.
func (f *HeadFile) SetBranch(branch string) error { return f.Write(Head{Branch: branch}) }

// Detach points HEAD directly at commit.
func (f *HeadFile) Detach(commit Hash) error { return f.Write(Head{Commit: commit}) }
