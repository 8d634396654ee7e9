package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "value")

	if err := WriteFileAtomic(target, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

// TestWriteFileAtomic_OldContentVisibleUntilRename verifies that the target
// keeps its previous content while the replacement is still a temp file.
func TestWriteFileAtomic_OldContentVisibleUntilRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "value")
	if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	var seen string
	var tempName string
	testHookBeforeRename = func(tempPath string) {
		tempName = tempPath
		data, err := os.ReadFile(target)
		if err != nil {
			t.Errorf("read during write: %v", err)
			return
		}
		seen = string(data)
	}
	t.Cleanup(func() { testHookBeforeRename = nil })

	if err := WriteFileAtomic(target, []byte("new"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	if seen != "old" {
		t.Errorf("content before rename = %q, want %q", seen, "old")
	}
	if !strings.HasPrefix(filepath.Base(tempName), TempPrefix) {
		t.Errorf("temp file %q does not carry prefix %q", tempName, TempPrefix)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "new" {
		t.Errorf("content after rename = %q, want %q", data, "new")
	}
}

func TestWriteFileAtomic_AppliesPermAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "rc")

	if err := WriteFileAtomic(target, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), TempPrefix) {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
