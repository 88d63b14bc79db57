package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/gitlite/internal/dag"
)

func TestResolve(t *testing.T) {
	const b, x, y dag.Hash = "b", "x", "y"
	tests := []struct {
		name          string
		base, cur, gv dag.Hash
		inB, inC, inG bool
		want          resolution
	}{
		{"unchanged/modified", b, b, x, true, true, true, take},
		{"unchanged/removed", b, b, "", true, true, false, drop},
		{"modified/unchanged", b, x, b, true, true, true, keep},
		{"modified same", b, x, x, true, true, true, keep},
		{"modified differing", b, x, y, true, true, true, conflict},
		{"modified/removed", b, x, "", true, true, false, conflict},
		{"removed/modified", b, "", x, true, false, true, conflict},
		{"removed/unchanged", b, "", b, true, false, true, keep},
		{"removed both", b, "", "", true, false, false, keep},
		{"new only in given", "", "", x, false, false, true, take},
		{"new only in current", "", x, "", false, true, false, keep},
		{"new both same", "", x, x, false, true, true, keep},
		{"new both differing", "", x, y, false, true, true, conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(tt.base, tt.cur, tt.gv, tt.inB, tt.inC, tt.inG))
		})
	}
}

func TestConflictContent(t *testing.T) {
	tests := []struct {
		name       string
		cur, given []byte
		want       string
	}{
		{"no trailing newlines", []byte("a"), []byte("b"), "<<<<<<< HEAD\na\n=======\nb\n>>>>>>>\n"},
		{"trailing newlines", []byte("a\n"), []byte("b\n"), "<<<<<<< HEAD\na\n=======\nb\n>>>>>>>\n"},
		{"current removed", nil, []byte("b"), "<<<<<<< HEAD\n=======\nb\n>>>>>>>\n"},
		{"given removed", []byte("a\n"), nil, "<<<<<<< HEAD\na\n=======\n>>>>>>>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(ConflictContent(tt.cur, tt.given)))
		})
	}
}

func TestMerge_Conflict(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "hello", "C1")
	require.NoError(t, r.Branch("topic"))

	require.NoError(t, r.CheckoutBranch("topic"))
	topicTip := commitFile(t, r, "a.txt", "topic-version", "topic edit")
	require.NoError(t, r.CheckoutBranch("master"))
	masterTip := commitFile(t, r, "a.txt", "master-version", "master edit")

	res, err := r.Merge("topic")
	require.NoError(t, err)
	assert.Equal(t, MergeConflict, res.Outcome)
	assert.Equal(t, []string{"a.txt"}, res.Conflicts)
	assert.Equal(t, "<<<<<<< HEAD\nmaster-version\n=======\ntopic-version\n>>>>>>>\n", readFile(t, r, "a.txt"))

	c, err := r.Store.GetCommit(res.Commit)
	require.NoError(t, err)
	assert.Equal(t, []dag.Hash{masterTip, topicTip}, c.Parents)
	assert.Equal(t, "Merged topic into master.", c.Message)

	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, res.Commit, h)
}

func TestMerge_Clean(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "shared.txt", "base", "base")
	commitFile(t, r, "doomed.txt", "d", "add doomed")
	require.NoError(t, r.Branch("topic"))

	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "shared.txt", "topic edit", "edit shared")
	require.NoError(t, r.Rm("doomed.txt"))
	_, err := r.Commit("remove doomed")
	require.NoError(t, err)
	commitFile(t, r, "fresh.txt", "f", "add fresh")

	require.NoError(t, r.CheckoutBranch("master"))
	commitFile(t, r, "mine.txt", "m", "master work")

	res, err := r.Merge("topic")
	require.NoError(t, err)
	assert.Equal(t, MergeClean, res.Outcome)
	assert.Empty(t, res.Conflicts)

	assert.Equal(t, "topic edit", readFile(t, r, "shared.txt"))
	assert.Equal(t, "f", readFile(t, r, "fresh.txt"))
	assert.Equal(t, "m", readFile(t, r, "mine.txt"))
	assert.False(t, fileExists(r, "doomed.txt"))
	assert.Equal(t, []string{"fresh.txt", "mine.txt", "shared.txt"}, headCommit(t, r).Paths())

	s, err := r.LoadStage()
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestMerge_AncestorAndFastForward(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "1", "first")
	require.NoError(t, r.Branch("old"))
	tip := commitFile(t, r, "a.txt", "2", "second")

	res, err := r.Merge("old")
	require.NoError(t, err)
	assert.Equal(t, AlreadyAncestor, res.Outcome)
	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, tip, h, "no commit created")

	require.NoError(t, r.CheckoutBranch("old"))
	res, err = r.Merge("master")
	require.NoError(t, err)
	assert.Equal(t, FastForwarded, res.Outcome)
	assert.Equal(t, tip, res.Commit)
	assert.Equal(t, "2", readFile(t, r, "a.txt"))

	oldTip, err := r.Branches.Get("old")
	require.NoError(t, err)
	assert.Equal(t, tip, oldTip)
}

func TestMerge_Preconditions(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "1", "first")
	require.NoError(t, r.Branch("topic"))

	_, err := r.Merge("nope")
	assert.ErrorIs(t, err, ErrNoSuchBranch)

	_, err = r.Merge("master")
	assert.ErrorIs(t, err, ErrSelfMerge)

	writeFile(t, r, "b.txt", "b")
	require.NoError(t, r.Add("b.txt"))
	_, err = r.Merge("topic")
	assert.ErrorIs(t, err, ErrUncommittedChanges)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestMerge_UntrackedCollisionAborts(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "1", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "new.txt", "topic", "topic work")
	require.NoError(t, r.CheckoutBranch("master"))
	before := commitFile(t, r, "a.txt", "2", "master work")

	writeFile(t, r, "new.txt", "mine")
	_, err := r.Merge("topic")
	require.ErrorIs(t, err, ErrUntrackedCollision)

	assert.Equal(t, "mine", readFile(t, r, "new.txt"))
	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, before, h)
	s, err := r.LoadStage()
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestMerge_IgnoredUntrackedCollisionAborts(t *testing.T) {
	r := newIgnoringRepo(t, "*.log")
	commitFile(t, r, "a.txt", "1", "first")
	require.NoError(t, r.Branch("topic"))
	require.NoError(t, r.CheckoutBranch("topic"))
	commitFile(t, r, "x.log", "committed", "topic log")
	require.NoError(t, r.CheckoutBranch("master"))
	before := commitFile(t, r, "a.txt", "2", "master work")

	writeFile(t, r, "x.log", "precious untracked")
	_, err := r.Merge("topic")
	require.ErrorIs(t, err, ErrUntrackedCollision)

	assert.Equal(t, "precious untracked", readFile(t, r, "x.log"))
	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, before, h)
}

func TestMerge_RejectsUnsafeManifestPaths(t *testing.T) {
	r := newTestRepo(t)
	base := commitFile(t, r, "a.txt", "1", "first")
	blob, err := r.Store.PutBlob([]byte("pwned"))
	require.NoError(t, err)
	bad, err := r.Store.PutCommit(&dag.Commit{
		V:         dag.CommitVersion,
		Message:   "unsafe",
		Timestamp: 1,
		Parents:   []dag.Hash{base},
		Files:     map[string]dag.Hash{"a.txt": dag.MustSum([]byte("1")), ".gitlite/HEAD": blob},
	})
	require.NoError(t, err)
	require.NoError(t, r.CreateBranch("fetched", bad, "test"))
	before := commitFile(t, r, "b.txt", "b", "master work")

	_, err = r.Merge("fetched")
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, KindValidation, KindOf(err))

	h, err := r.HeadCommit()
	require.NoError(t, err)
	assert.Equal(t, before, h)
	head, err := r.Head.Read()
	require.NoError(t, err)
	assert.Equal(t, "master", head.Branch)
}
