package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "doc.json")

	if err := WriteFile(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFile(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("contents = %q, want two", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFileFailedRenameKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := WriteFile(path, []byte("durable")); err != nil {
		t.Fatal(err)
	}

	crash := Writer{Perm: 0o600, Rename: func(string, string) error {
		return errors.New("killed before rename")
	}}
	if err := crash.WriteFile(path, []byte("lost")); err == nil {
		t.Fatal("expected rename failure")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "durable" {
		t.Errorf("contents = %q, want durable", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := WriteJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "{\n  \"a\": 1\n}\n" {
		t.Errorf("contents = %q", got)
	}
}

func TestPreserveCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	dst, err := PreserveCorrupt(path)
	if err != nil {
		t.Fatal(err)
	}
	if dst != path+".corrupt" {
		t.Errorf("dst = %q", dst)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("original should be gone, stat err = %v", err)
	}

	dst, err = PreserveCorrupt(path)
	if err != nil || dst != "" {
		t.Errorf("missing file: got (%q, %v), want (\"\", nil)", dst, err)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}
