package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systemshift/gitlite/internal/dag"
)

func TestListTree(t *testing.T) {
	files := map[string]dag.Hash{
		"README":            "r",
		"src/main.go":       "m",
		"src/util/strs.go":  "s",
		"src/util/nums.go":  "n",
		"docs/guide/one.md": "o",
	}

	assert.Equal(t, []TreeEntry{
		{Name: "README", Blob: "r"},
		{Name: "docs", IsDir: true},
		{Name: "src", IsDir: true},
	}, listTree(files, ""))

	assert.Equal(t, []TreeEntry{
		{Name: "main.go", Blob: "m"},
		{Name: "util", IsDir: true},
	}, listTree(files, "src"))

	assert.Equal(t, []TreeEntry{
		{Name: "nums.go", Blob: "n"},
		{Name: "strs.go", Blob: "s"},
	}, listTree(files, "src/util"))

	assert.Empty(t, listTree(files, "missing"))
	assert.Empty(t, listTree(files, "sr"), "prefix must end at a separator")
}

func TestRefChildren(t *testing.T) {
	names := []string{"master", "feature/a", "feature/b", "origin/master"}
	assert.Equal(t, []string{"feature", "master", "origin"}, refChildren(names, ""))
	assert.Equal(t, []string{"a", "b"}, refChildren(names, "feature/"))
	assert.Empty(t, refChildren(names, "nope/"))
}

func TestReadAt(t *testing.T) {
	data := []byte("hello world")
	assert.Equal(t, "hello", string(readAt(data, 5, 0)))
	assert.Equal(t, "world", string(readAt(data, 100, 6)))
	assert.Empty(t, readAt(data, 4, 11))
	assert.Empty(t, readAt(data, 4, 50))
}

func TestCommitJSON(t *testing.T) {
	c := dag.RootCommit()
	data, err := commitJSON(dag.Entry{Hash: dag.RootHash(), Commit: c})
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"message": "initial commit"`)
	assert.Contains(t, string(data), dag.RootHash().CIDString())
}
