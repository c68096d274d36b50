package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a directory-backed FileSystem sandboxed to its root: every
// resolved path is canonicalized and checked to still live under
// root, which is the sole defense against "../" traversal and must
// run after canonicalization, never before.
type Dir struct {
	root string
}

// NewDir canonicalizes path and returns a Dir rooted there. path must
// already exist and be a directory.
func NewDir(path string) (*Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, path)
	}
	return &Dir{root: root}, nil
}

// resolve canonicalizes a virtual path against the root and verifies
// containment. The containment check happens strictly after
// canonicalization so that a path like "a/../../etc/passwd" is
// resolved to its real target before being rejected.
func (d *Dir) resolve(path string) (string, error) {
	joined := cleanJoin(d.root, normalize(path))

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if resolved != d.root && !strings.HasPrefix(resolved, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes root", ErrInvalidPath, path)
	}
	return resolved, nil
}

func (d *Dir) Read(path string) ([]byte, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("vfs: reading %s: %w", path, err)
	}
	return b, nil
}

func (d *Dir) Exists(path string) bool {
	full, err := d.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (d *Dir) List(path string) ([]string, error) {
	dirPath := d.root
	if n := normalize(path); n != "" {
		var err error
		dirPath, err = d.resolve(path)
		if err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("vfs: listing %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
