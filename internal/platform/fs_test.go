package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRemovePathDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "HelloCpp.app")
	if err := os.MkdirAll(filepath.Join(dir, "Contents"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := RemovePath(dir); err != nil {
		t.Fatalf("RemovePath: %v", err)
	}
	if Exists(dir) {
		t.Error("directory still exists")
	}
}

func TestRemovePathKeepsSymlinkTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need developer mode on Windows")
	}
	tmp := t.TempDir()
	target := filepath.Join(tmp, "real")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmp, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	if err := RemovePath(link); err != nil {
		t.Fatalf("RemovePath: %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Error("symlink still exists")
	}
	if !IsFile(filepath.Join(target, "keep.txt")) {
		t.Error("symlink target contents were removed")
	}
}

func TestRemovePathMissing(t *testing.T) {
	if err := RemovePath(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("RemovePath on missing path: %v", err)
	}
}
