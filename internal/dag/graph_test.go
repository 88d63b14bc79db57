package dag

import (
	"testing"
)

// commitOn stores a commit with the given parents and a distinguishing message.
func commitOn(t *testing.T, s *ObjectStore, msg string, ts int64, parents ...Hash) Hash {
	t.Helper()
	c := &Commit{V: CommitVersion, Message: msg, Timestamp: ts, Parents: parents, Files: map[string]Hash{}}
	h, err := s.PutCommit(c)
	if err != nil {
		t.Fatalf("PutCommit %s: %v", msg, err)
	}
	return h
}

func TestGraph_LogFollowsFirstParent(t *testing.T) {
	s := openTestStore(t)
	g := NewGraph(s)
	root, _ := s.PutCommit(RootCommit())
	a := commitOn(t, s, "a", 1, root)
	side := commitOn(t, s, "side", 2, root)
	m := commitOn(t, s, "merge", 3, a, side)

	entries, err := g.Log(m, 0)
	if err != nil {
		t.Fatal(err)
	}
	var msgs []string
	for _, e := range entries {
		msgs = append(msgs, e.Commit.Message)
	}
	want := []string{"merge", "a", RootMessage}
	if len(msgs) != len(want) {
		t.Fatalf("log = %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, msgs[i], want[i])
		}
	}

	limited, _ := g.Log(m, 2)
	if len(limited) != 2 {
		t.Errorf("limited log has %d entries, want 2", len(limited))
	}
}

func TestGraph_MergeBase(t *testing.T) {
	s := openTestStore(t)
	g := NewGraph(s)
	root, _ := s.PutCommit(RootCommit())
	c1 := commitOn(t, s, "c1", 1, root)
	m1 := commitOn(t, s, "m1", 2, c1)
	t1 := commitOn(t, s, "t1", 3, c1)
	t2 := commitOn(t, s, "t2", 4, t1)

	tests := []struct {
		name          string
		current, give Hash
		want          Hash
	}{
		{"diverged", m1, t2, c1},
		{"given is ancestor", t2, t1, t1},
		{"current is ancestor", c1, t2, c1},
		{"same commit", t1, t1, t1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.MergeBase(tt.current, tt.give)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("MergeBase = %s, want %s", got.Short(), tt.want.Short())
			}
		})
	}
}

func TestGraph_MergeBaseAfterEarlierMerge(t *testing.T) {
	// c1 and root are common ancestors too, but t1 is the nearest.
	s := openTestStore(t)
	g := NewGraph(s)
	root, _ := s.PutCommit(RootCommit())
	c1 := commitOn(t, s, "c1", 1, root)
	t1 := commitOn(t, s, "t1", 2, c1)
	m1 := commitOn(t, s, "m1", 3, c1)
	m2 := commitOn(t, s, "m2", 4, m1)
	m3 := commitOn(t, s, "m3", 5, m2)
	merged := commitOn(t, s, "merge t1", 6, m3, t1)
	t2 := commitOn(t, s, "t2", 7, t1)

	got, err := g.MergeBase(merged, t2)
	if err != nil {
		t.Fatal(err)
	}
	if got != t1 {
		t.Errorf("MergeBase = %s, want t1 %s", got.Short(), t1.Short())
	}
}

func TestGraph_Future(t *testing.T) {
	s := openTestStore(t)
	g := NewGraph(s)
	root, _ := s.PutCommit(RootCommit())
	a := commitOn(t, s, "a", 1, root)
	b := commitOn(t, s, "b", 2, a)
	side := commitOn(t, s, "side", 3, root)
	m := commitOn(t, s, "m", 4, b, side)

	got, err := g.Future(m, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != b || got[1] != m {
		t.Errorf("Future(m, a) = %v, want [b m]", got)
	}

	// side does not descend from a, so it is not part of the future.
	for _, h := range got {
		if h == side {
			t.Error("side branch commit included in future")
		}
	}

	if got, _ := g.Future(a, a); len(got) != 0 {
		t.Errorf("Future(a, a) = %v, want empty", got)
	}
	if got, _ := g.Future(side, b); len(got) != 0 {
		t.Errorf("Future(side, b) = %v, want empty", got)
	}
}

func TestGraph_ReachableParentsFirst(t *testing.T) {
	s := openTestStore(t)
	g := NewGraph(s)
	root, _ := s.PutCommit(RootCommit())
	a := commitOn(t, s, "a", 1, root)
	b := commitOn(t, s, "b", 2, root)
	m := commitOn(t, s, "m", 3, a, b)

	got, err := g.Reachable(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("Reachable = %d commits, want 4", len(got))
	}
	if got[0] != root || got[len(got)-1] != m {
		t.Errorf("order = %v, want root first and m last", got)
	}
	ok, _ := g.IsAncestor(root, m)
	if !ok {
		t.Error("root should be an ancestor of m")
	}
	ok, _ = g.IsAncestor(a, b)
	if ok {
		t.Error("a should not be an ancestor of b")
	}
}
