// Package local provides the on-disk storage backend. The directory
// tree under the root mirrors the logical hierarchy 1:1.
package local

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filevault/internal/storage"
)

// Backend implements storage.Backend on a local or network-mounted
// filesystem with POSIX-like rename semantics.
type Backend struct {
	root string
}

var _ storage.Backend = (*Backend)(nil)

// New creates a backend rooted at root, creating the directory if needed.
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat storage root %s: %w", root, err)
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root %s: %w", root, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", root)
	}

	return &Backend{root: root}, nil
}

func (b *Backend) fullPath(path string) string {
	return filepath.Join(b.root, filepath.FromSlash(path))
}

// EnsureDir creates the directory at path and any missing ancestors.
func (b *Backend) EnsureDir(path string) error {
	if err := os.MkdirAll(b.fullPath(path), 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Rename moves the artifact at oldPath to newPath in a single
// filesystem rename.
func (b *Backend) Rename(oldPath, newPath string) error {
	if err := os.Rename(b.fullPath(oldPath), b.fullPath(newPath)); err != nil {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Promote moves staged bytes into the tree. Rename is tried first; a
// cross-device staging directory falls back to copy-then-remove.
func (b *Backend) Promote(stagedPath, path string) error {
	dest := b.fullPath(path)
	if err := os.Rename(stagedPath, dest); err == nil {
		return nil
	}

	src, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("open staged file %s: %w", stagedPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dest)
		return fmt.Errorf("copy staged file to %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close %s: %w", path, err)
	}

	os.Remove(stagedPath)
	return nil
}

// Remove deletes the artifact at path recursively. Missing artifacts
// are ignored so repeated removal stays idempotent.
func (b *Backend) Remove(path string) error {
	if err := os.RemoveAll(b.fullPath(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Exists reports whether an artifact exists at path.
func (b *Backend) Exists(path string) (bool, error) {
	_, err := os.Stat(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// Open opens the regular file at path for reading.
func (b *Backend) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(b.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Walk visits every regular file under path.
func (b *Backend) Walk(path string, fn func(relPath string, size int64) error) error {
	base := b.fullPath(path)
	return filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info.Size())
	})
}
