package envhash

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestIDFormat(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "my-project")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	id, err := ID(sub)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}

	want := regexp.MustCompile(`^my-project_[0-9a-f]{8}$`)
	if !want.MatchString(id) {
		t.Errorf("ID = %q, want to match %s", id, want)
	}
}

func TestIDStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "stable-project")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	id1, err := ID(sub)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ID(sub)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("ID(%q) = %q then %q, want stable", sub, id1, id2)
	}
}

func TestIDResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real-project")
	if err := os.Mkdir(real, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link-project")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	realID, err := ID(real)
	if err != nil {
		t.Fatal(err)
	}
	linkID, err := ID(link)
	if err != nil {
		t.Fatal(err)
	}
	if realID != linkID {
		t.Errorf("ID(real) = %q, ID(symlink) = %q, want equal", realID, linkID)
	}
}

func TestIDDiffersByPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "project-a")
	b := filepath.Join(dir, "project-b")
	for _, p := range []string{a, b} {
		if err := os.Mkdir(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	idA, err := ID(a)
	if err != nil {
		t.Fatal(err)
	}
	idB, err := ID(b)
	if err != nil {
		t.Fatal(err)
	}
	if idA == idB {
		t.Errorf("ID(a) and ID(b) both = %q, want distinct", idA)
	}
}
