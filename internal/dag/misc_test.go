package dag

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDiffManifests(t *testing.T) {
	a, b, c := MustSum([]byte("a")), MustSum([]byte("b")), MustSum([]byte("c"))
	from := map[string]Hash{"keep": a, "edit": a, "gone": a}
	to := map[string]Hash{"keep": a, "edit": b, "new": c}

	ch := DiffManifests(from, to)
	if len(ch.Added) != 1 || ch.Added[0] != "new" {
		t.Errorf("Added = %v", ch.Added)
	}
	if len(ch.Modified) != 1 || ch.Modified[0] != "edit" {
		t.Errorf("Modified = %v", ch.Modified)
	}
	if len(ch.Removed) != 1 || ch.Removed[0] != "gone" {
		t.Errorf("Removed = %v", ch.Removed)
	}
	if !DiffManifests(from, from).Empty() {
		t.Error("diff of identical manifests should be empty")
	}
	if got := UnionPaths(from, to); len(got) != 4 {
		t.Errorf("UnionPaths = %v", got)
	}
}

func TestReflog_AppendAndFilter(t *testing.T) {
	log, err := NewReflog(filepath.Join(t.TempDir(), "logs", "refs.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if entries, err := log.Entries(""); err != nil || len(entries) != 0 {
		t.Fatalf("empty reflog = %v, %v", entries, err)
	}

	now := time.Unix(1000, 0).UTC()
	h1, h2 := MustSum([]byte("1")), MustSum([]byte("2"))
	log.Append(ReflogEntry{Time: now, Ref: "master", New: h1, Action: "init"})
	log.Append(ReflogEntry{Time: now, Ref: "topic", New: h1, Action: "branch"})
	log.Append(ReflogEntry{Time: now, Ref: "master", Old: h1, New: h2, Action: "commit"})

	entries, err := log.Entries("master")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d master entries, want 2", len(entries))
	}
	if entries[0].Action != "commit" || entries[0].Old != h1 {
		t.Errorf("newest entry = %+v", entries[0])
	}
	all, _ := log.Entries("")
	if len(all) != 3 {
		t.Errorf("got %d entries, want 3", len(all))
	}
}

func TestMessageIndex(t *testing.T) {
	s := openTestStore(t)
	root, _ := s.PutCommit(RootCommit())
	fix1 := commitOn(t, s, "fix merge bug", 10, root)
	fix2 := commitOn(t, s, "fix merge bug", 20, fix1)
	other := commitOn(t, s, "add merge docs", 30, fix2)

	idx, err := BuildMessageIndex(s)
	if err != nil {
		t.Fatal(err)
	}
	if got := idx.Exact("fix merge bug"); len(got) != 2 {
		t.Errorf("Exact = %v, want 2 hits", got)
	}
	if got := idx.Exact("fix"); len(got) != 0 {
		t.Errorf("Exact must not match partial messages: %v", got)
	}

	got := idx.Search("merge bug", 0)
	if len(got) != 3 {
		t.Fatalf("Search = %v, want 3 hits", got)
	}
	if got[0] != fix2 || got[1] != fix1 || got[2] != other {
		t.Errorf("ranking = %v", got)
	}
	if got := idx.Search("merge", 1); len(got) != 1 || got[0] != other {
		t.Errorf("limited search = %v", got)
	}
}
