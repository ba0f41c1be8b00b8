package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamekit-labs/ccbuild/internal/platform"
	cp "github.com/otiai10/copy"
)

// RemoveRes deletes the remove_res entries below target. An entry ending in
// "/" clears the directory's contents, any other directory is removed, and a
// file is deleted. Missing entries are ignored.
func RemoveRes(entries []string, target string) error {
	for _, entry := range entries {
		path := filepath.Join(target, filepath.FromSlash(entry))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() && strings.HasSuffix(entry, "/") {
			if err := ClearDir(path); err != nil {
				return err
			}
			continue
		}
		if err := platform.RemovePath(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// ClearDir removes every entry inside dir, keeping dir itself.
func ClearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := platform.RemovePath(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RemoveFilesWithExt deletes files with extension ext (e.g. ".a") directly
// inside dir.
func RemoveFilesWithExt(dir, ext string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RemoveTreeFilesWithExt deletes every file with extension ext below dir.
// It is used to drop script sources after they were compiled.
func RemoveTreeFilesWithExt(dir, ext string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ext {
			return os.Remove(path)
		}
		return nil
	})
}

// KeepOnlyExt removes everything in dir except files with extension ext.
func KeepOnlyExt(dir, ext string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			continue
		}
		if err := platform.RemovePath(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// CopyDirContents merges the contents of src into dst.
func CopyDirContents(src, dst string) error {
	if err := cp.Copy(src, dst, cp.Options{OnSymlink: func(string) cp.SymlinkAction { return cp.Deep }}); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyGlob copies files in srcDir matching pattern (e.g. "*.dll") into dstDir.
func CopyGlob(srcDir, pattern, dstDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(srcDir, pattern))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range matches {
		if !platform.IsFile(m) {
			continue
		}
		if err := CopyFile(m, filepath.Join(dstDir, filepath.Base(m))); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// CopyFile copies a single file from src to dst, preserving permissions.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("copying %s: is a directory", src)
	}
	opts := cp.Options{
		PermissionControl: cp.AddPermission(0),
		OnSymlink:         func(string) cp.SymlinkAction { return cp.Deep },
	}
	if err := cp.Copy(src, dst, opts); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// Recreate removes dir if present and creates it empty.
func Recreate(dir string) error {
	if err := platform.RemovePath(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
