package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/gitlite/internal/dag"
)

func TestCheckoutFile(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFile(t, r, "a.txt", "v1", "first")
	commitFile(t, r, "a.txt", "v2", "second")

	writeFile(t, r, "a.txt", "scratch")
	require.NoError(t, r.CheckoutFile("a.txt"))
	assert.Equal(t, "v2", readFile(t, r, "a.txt"))

	require.NoError(t, r.CheckoutFileInCommit(c1.Short(), "a.txt"))
	assert.Equal(t, "v1", readFile(t, r, "a.txt"))

	err := r.CheckoutFile("missing.txt")
	assert.ErrorIs(t, err, ErrNotInCommit)

	err = r.CheckoutFileInCommit("ffffffffff", "a.txt")
	assert.ErrorIs(t, err, ErrNoSuchCommit)

	err = r.CheckoutFileInCommit(string(c1), "missing.txt")
	assert.ErrorIs(t, err, ErrNotInCommit)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCheckoutBranch_SwitchesTree(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "common.txt", "c", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	topicTip := commitFile(t, r, "topic.txt", "t", "topic work")

	writeFile(t, r, "scratch.txt", "untracked")
	require.NoError(t, r.CheckoutBranch("master"))

	assert.False(t, fileExists(r, "topic.txt"), "file tracked only on topic is removed")
	assert.True(t, fileExists(r, "common.txt"))
	assert.Equal(t, "untracked", readFile(t, r, "scratch.txt"), "untracked files survive")

	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Branch)

	require.NoError(t, r.CheckoutBranch("topic"))
	assert.Equal(t, "t", readFile(t, r, "topic.txt"))
	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, topicTip, h)
}

func TestCheckoutBranch_Errors(t *testing.T) {
	r := newTestRepo(t)

	err := r.CheckoutBranch("nope")
	assert.ErrorIs(t, err, ErrNoSuchBranch)

	err = r.CheckoutBranch("master")
	assert.ErrorIs(t, err, ErrAlreadyOnBranch)
}

func TestCheckoutBranch_UntrackedCollision(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "a", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "new.txt", "from topic", "topic work")
	require.NoError(t, r.CheckoutBranch("master"))
	require.False(t, fileExists(r, "new.txt"))

	writeFile(t, r, "new.txt", "mine")
	writeFile(t, r, "a.txt", "edited")

	err := r.CheckoutBranch("topic")
	require.ErrorIs(t, err, ErrUntrackedCollision)
	assert.Equal(t, KindConflict, KindOf(err))
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"new.txt"}, e.Paths)

	assert.Equal(t, "mine", readFile(t, r, "new.txt"), "untracked file not overwritten")
	assert.Equal(t, "edited", readFile(t, r, "a.txt"), "tracked file not touched")
	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Branch)
}

func TestCheckout_StagedFileIsNotUntracked(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "x.txt", "topic", "topic work")
	require.NoError(t, r.CheckoutBranch("master"))

	writeFile(t, r, "x.txt", "staged")
	require.NoError(t, r.Add("x.txt"))
	require.NoError(t, r.CheckoutBranch("topic"))
	assert.Equal(t, "topic", readFile(t, r, "x.txt"))

	s, err := r.LoadStage()
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestReset(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFile(t, r, "a.txt", "v1", "first")
	commitFile(t, r, "b.txt", "b", "second")

	require.NoError(t, r.Reset(c1.Short()))
	assert.False(t, fileExists(r, "b.txt"))
	assert.Equal(t, "v1", readFile(t, r, "a.txt"))

	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Branch, "reset keeps the current branch")
	tip, err := r.Branches.Get("master")
	require.NoError(t, err)
	assert.Equal(t, c1, tip)

	err = r.Reset("0000000")
	assert.ErrorIs(t, err, ErrNoSuchCommit)
}

func TestReset_Detached(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFile(t, r, "a.txt", "v1", "first")
	c2 := commitFile(t, r, "a.txt", "v2", "second")

	require.NoError(t, r.Head.Detach(c2))
	require.NoError(t, r.Reset(string(c1)))

	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, dag.Head{Commit: c1}, head)
	tip, err := r.Branches.Get("master")
	require.NoError(t, err)
	assert.Equal(t, c2, tip, "branch untouched while detached")
}

func TestBranch(t *testing.T) {
	r := newTestRepo(t)
	h := commitFile(t, r, "a.txt", "a", "first")

	require.NoError(t, r.Branch("feature/x"))
	assert.ErrorIs(t, r.Branch("feature/x"), ErrBranchExists)
	assert.ErrorIs(t, r.Branch("../evil"), ErrInvalidName)

	branches, err := r.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []BranchInfo{
		{Name: "feature/x", Tip: h},
		{Name: "master", Tip: h, Current: true},
	}, branches)

	assert.ErrorIs(t, r.RemoveBranch("master"), ErrRemoveCurrentBranch)
	assert.ErrorIs(t, r.RemoveBranch("nope"), ErrNoSuchBranch)
	require.NoError(t, r.RemoveBranch("feature/x"))
	assert.False(t, r.Branches.Has("feature/x"))
	assert.True(t, r.Store.HasCommit(h), "commits outlive branches")
}

func TestStatus(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "keep.txt", "k", "first")
	commitFile(t, r, "edit.txt", "e", "second")
	commitFile(t, r, "gone.txt", "g", "third")
	commitFile(t, r, "rm.txt", "r", "fourth")
	require.NoError(t, r.Branch("other"))

	writeFile(t, r, "staged.txt", "s")
	require.NoError(t, r.Add("staged.txt"))
	require.NoError(t, r.Rm("rm.txt"))
	writeFile(t, r, "edit.txt", "changed")
	require.NoError(t, r.Tree.Remove("gone.txt"))
	writeFile(t, r, "loose.txt", "l")
	writeFile(t, r, "staged.txt", "s2")

	st, err := r.Status()
	require.NoError(t, err)
	require.Len(t, st.Branches, 2)
	assert.True(t, st.Branches[0].Current)
	assert.Equal(t, "master", st.Branches[0].Name)
	assert.True(t, st.Detached.IsZero())
	assert.Equal(t, []string{"staged.txt"}, st.Staged)
	assert.Equal(t, []string{"rm.txt"}, st.Removed)
	assert.Equal(t, []Change{
		{Path: "edit.txt", State: StateModified},
		{Path: "gone.txt", State: StateDeleted},
		{Path: "staged.txt", State: StateModified},
	}, st.Modified)
	assert.Equal(t, []string{"loose.txt"}, st.Untracked)
}

func TestCheckoutBranch_IgnoredUntrackedCollision(t *testing.T) {
	r := newIgnoringRepo(t, "*.log")
	commitFile(t, r, "a.txt", "a", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "x.log", "committed", "track a log")
	require.NoError(t, r.CheckoutBranch("master"))
	require.False(t, fileExists(r, "x.log"), "tracked ignored file removed on switch")

	writeFile(t, r, "x.log", "precious untracked")
	err := r.CheckoutBranch("topic")
	require.ErrorIs(t, err, ErrUntrackedCollision)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"x.log"}, e.Paths)
	assert.Equal(t, "precious untracked", readFile(t, r, "x.log"))
}

func TestStatus_TrackedIgnoredFile(t *testing.T) {
	r := newIgnoringRepo(t, "*.log", "build")
	commitFile(t, r, "x.log", "v1", "track a log")
	writeFile(t, r, "other.log", "noise")
	writeFile(t, r, "build/out.o", "obj")

	st, err := r.Status()
	require.NoError(t, err)
	assert.Empty(t, st.Modified)
	assert.Empty(t, st.Untracked)

	writeFile(t, r, "x.log", "v2")
	st, err = r.Status()
	require.NoError(t, err)
	assert.Equal(t, []Change{{Path: "x.log", State: StateModified}}, st.Modified)
}

func TestCheckout_DirectoryCollision(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "a", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "out", "file named out", "file")
	commitFile(t, r, "dir/f.txt", "nested", "nested")
	require.NoError(t, r.CheckoutBranch("master"))

	writeFile(t, r, "out/keep.txt", "mine")
	writeFile(t, r, "dir", "also mine")

	err := r.CheckoutBranch("topic")
	require.ErrorIs(t, err, ErrUntrackedCollision)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"dir", "out/keep.txt"}, e.Paths)
	assert.Equal(t, "a", readFile(t, r, "a.txt"), "tracked files untouched")
	assert.Equal(t, "mine", readFile(t, r, "out/keep.txt"))
}

func TestCollisions(t *testing.T) {
	untracked := map[string]bool{"a/x": true, "d": true, "same.txt": true}

	tests := []struct {
		name   string
		writes []string
		want   []string
	}{
		{name: "exact", writes: []string{"same.txt"}, want: []string{"same.txt"}},
		{name: "file replaces directory", writes: []string{"a"}, want: []string{"a/x"}},
		{name: "directory replaces file", writes: []string{"d/e/f"}, want: []string{"d"}},
		{name: "siblings", writes: []string{"a/y", "dd"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collisions(untracked, tt.writes))
		})
	}
}

func TestReset_RejectsUnsafeManifestPaths(t *testing.T) {
	r := newTestRepo(t)
	before := commitFile(t, r, "a.txt", "a", "first")

	blob, err := r.Store.PutBlob([]byte("pwned"))
	require.NoError(t, err)
	bad, err := r.Store.PutCommit(&dag.Commit{
		V:         dag.CommitVersion,
		Message:   "unsafe",
		Timestamp: 1,
		Parents:   []dag.Hash{before},
		Files:     map[string]dag.Hash{".gitlite/HEAD": blob, "../escaped.txt": blob},
	})
	require.NoError(t, err)

	err = r.Reset(string(bad))
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, KindValidation, KindOf(err))

	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Branch)
	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, before, h)
	assert.Equal(t, "a", readFile(t, r, "a.txt"))
	_, err = os.Stat(filepath.Join(filepath.Dir(r.Root()), "escaped.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = Open(r.Root())
	assert.NoError(t, err)
}
