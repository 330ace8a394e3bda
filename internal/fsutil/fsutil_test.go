package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicLeavesNoTempOnSuccess(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "metadata.json")

	err := WriteAtomic(dest, func(f *os.File) error {
		_, err := f.WriteString(`{"ok":true}`)
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Errorf(".tmp file left behind after successful WriteAtomic")
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("written content = %q, want {\"ok\":true}", data)
	}
}

func TestWriteAtomicCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "metadata.json")

	err := WriteAtomic(dest, func(f *os.File) error {
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatal("expected error from failing write func")
	}
	if _, statErr := os.Stat(dest + ".tmp"); !os.IsNotExist(statErr) {
		t.Errorf(".tmp file left behind after failed WriteAtomic")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("dest should not exist after failed WriteAtomic")
	}
}

func TestCopyDirPreservesContent(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "copy")
	if err := CopyDir(src, dest); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	if err != nil || string(got) != "world" {
		t.Errorf("copied nested file = %q, %v, want world, nil", got, err)
	}
}

func TestIsEmptyDirOrNotExist(t *testing.T) {
	dir := t.TempDir()
	empty, err := IsEmptyDirOrNotExist(filepath.Join(dir, "missing"))
	if err != nil || !empty {
		t.Errorf("missing dir: got (%v, %v), want (true, nil)", empty, err)
	}

	empty, err = IsEmptyDirOrNotExist(dir)
	if err != nil || !empty {
		t.Errorf("empty dir: got (%v, %v), want (true, nil)", empty, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty, err = IsEmptyDirOrNotExist(dir)
	if err != nil || empty {
		t.Errorf("non-empty dir: got (%v, %v), want (false, nil)", empty, err)
	}
}
