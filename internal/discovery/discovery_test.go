package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListDirectoryOrdersDirsBeforeFiles(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "b.mkv"), "x")
	mustWrite(t, filepath.Join(dir, "a.mkv"), "x")
	if err := os.Mkdir(filepath.Join(dir, "z_sub"), 0755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(dir, ".hidden.mkv"), "x")
	mustWrite(t, filepath.Join(dir, "notes.txt"), "x")

	entries, err := ListDirectory(dir)
	if err != nil {
		t.Fatalf("ListDirectory() error: %v", err)
	}

	want := []string{"z_sub", "a.mkv", "b.mkv"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d].Name = %q, want %q", i, entries[i].Name, name)
		}
	}
	if !entries[0].IsDir {
		t.Error("expected first entry to be a directory")
	}
}

func TestListDirectoryEmptyIsNotError(t *testing.T) {
	dir := t.TempDir()

	entries, err := ListDirectory(dir)
	if err != nil {
		t.Fatalf("ListDirectory() error on empty dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestListDirectoryMissing(t *testing.T) {
	if _, err := ListDirectory("/nonexistent/path/xyz"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
