// Package archive streams folder subtrees and single files for
// download, reading directly from the storage backend.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"

	"filevault/internal/domain"
	"filevault/internal/storage"
)

// Exporter produces downloadable byte streams from the on-disk tree.
type Exporter struct {
	files  storage.Backend
	logger *slog.Logger
}

// NewExporter creates an exporter over the given backend.
func NewExporter(files storage.Backend, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{files: files, logger: logger}
}

// ExportFolder writes the subtree at path to w as a zip archive. Files
// are streamed one at a time; the archive is never buffered whole. A
// concurrent rename of the subtree surfaces as an error mid-stream
// rather than a silently truncated archive.
func (e *Exporter) ExportFolder(w io.Writer, path string) error {
	ok, err := e.files.Exists(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	if !ok {
		return &domain.NotFoundError{
			Message: fmt.Sprintf("no directory on disk at %q", path),
		}
	}

	zw := zip.NewWriter(w)

	err = e.files.Walk(path, func(relPath string, size int64) error {
		fw, err := zw.Create(relPath)
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", relPath, err)
		}

		rc, err := e.files.Open(path + "/" + relPath)
		if err != nil {
			return err
		}
		defer rc.Close()

		if _, err := io.Copy(fw, rc); err != nil {
			return fmt.Errorf("stream %s into archive: %w", relPath, err)
		}
		return nil
	})
	if err != nil {
		// Closing would stamp a valid central directory onto a broken
		// archive; leave the stream visibly truncated instead.
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	e.logger.Debug("folder exported", "path", path)
	return nil
}

// ExportFile opens the single file at path for streaming. The caller
// owns the returned reader.
func (e *Exporter) ExportFile(path string) (io.ReadCloser, error) {
	ok, err := e.files.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	if !ok {
		return nil, &domain.NotFoundError{
			Message: fmt.Sprintf("no file on disk at %q", path),
		}
	}
	return e.files.Open(path)
}
