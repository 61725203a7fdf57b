package storage

import "io"

// Backend is the narrow filesystem surface the hierarchy core mutates
// through. Paths are storage-root-relative, slash-separated logical
// paths as produced by the path resolver. Keeping the surface this
// small makes the compensating-rollback logic unit-testable without a
// real disk.
type Backend interface {
	// EnsureDir creates the directory at path, including any missing
	// ancestors. Creating an existing directory is not an error.
	EnsureDir(path string) error

	// Rename atomically moves the file or directory at oldPath to
	// newPath. For directories the whole subtree moves in one filesystem
	// operation; it is never observed half-done.
	Rename(oldPath, newPath string) error

	// Promote moves staged upload bytes from an absolute temp location
	// into the tree at path.
	Promote(stagedPath, path string) error

	// Remove deletes the artifact at path, recursively for directories.
	// A missing artifact is not an error.
	Remove(path string) error

	// Exists reports whether an artifact exists at path.
	Exists(path string) (bool, error)

	// Open opens the regular file at path for reading.
	Open(path string) (io.ReadCloser, error)

	// Walk visits every regular file under path, depth-first. relPath is
	// relative to the walked path.
	Walk(path string, fn func(relPath string, size int64) error) error
}
