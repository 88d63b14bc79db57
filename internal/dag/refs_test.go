package dag

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRefStore_SetGetList(t *testing.T) {
	dir := t.TempDir()
	refs, err := NewRefStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	h := MustSum([]byte("tip"))

	for _, name := range []string{"master", "topic", "origin/master"} {
		if err := refs.Set(name, h); err != nil {
			t.Fatalf("Set %s: %v", name, err)
		}
	}
	got, err := refs.Get("origin/master")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != h {
		t.Errorf("got %s, want %s", got, h)
	}

	names, _ := refs.List()
	want := []string{"master", "origin/master", "topic"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRefStore_DeletePrunesNamespace(t *testing.T) {
	dir := t.TempDir()
	refs, _ := NewRefStore(dir)
	refs.Set("origin/master", MustSum([]byte("x")))

	if err := refs.Delete("origin/master"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "origin")); !os.IsNotExist(err) {
		t.Error("empty namespace directory left behind")
	}
	if err := refs.Delete("origin/master"); !errors.Is(err, ErrRefNotFound) {
		t.Errorf("second Delete err = %v, want ErrRefNotFound", err)
	}
}

func TestRefStore_Errors(t *testing.T) {
	refs, _ := NewRefStore(t.TempDir())
	if _, err := refs.Get("missing"); !errors.Is(err, ErrRefNotFound) {
		t.Errorf("Get missing err = %v", err)
	}
	if err := refs.Set("../escape", MustSum(nil)); !errors.Is(err, ErrBadRefName) {
		t.Errorf("Set ../escape err = %v", err)
	}
	if err := refs.Set("ok", "not-a-hash"); err == nil {
		t.Error("expected malformed hash error")
	}
}

func TestRemoteStore(t *testing.T) {
	remotes, _ := NewRemoteStore(t.TempDir())
	if err := remotes.Set("origin", "/srv/repo/.gitlite"); err != nil {
		t.Fatal(err)
	}
	got, err := remotes.Get("origin")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/srv/repo/.gitlite" {
		t.Errorf("got %q", got)
	}
	if err := remotes.Set("a/b", "/x"); err == nil {
		t.Error("expected error for nested remote name")
	}
}

func TestHeadFile(t *testing.T) {
	f := NewHeadFile(filepath.Join(t.TempDir(), "HEAD"))
	if err := f.SetBranch("master"); err != nil {
		t.Fatal(err)
	}
	head, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	if head.Detached() || head.Branch != "master" {
		t.Errorf("head = %+v, want branch master", head)
	}

	h := MustSum([]byte("c"))
	if err := f.Detach(h); err != nil {
		t.Fatal(err)
	}
	head, _ = f.Read()
	if !head.Detached() || head.Commit != h {
		t.Errorf("head = %+v, want detached %s", head, h)
	}
}
