package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"filevault/internal/domain"
	"filevault/internal/storage/local"
)

func newBackend(t *testing.T) (*local.Backend, string) {
	t.Helper()
	root := t.TempDir()
	files, err := local.New(root)
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	return files, root
}

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExportFolder(t *testing.T) {
	files, root := newBackend(t)
	writeFile(t, root, "Docs/report.pdf", "pdf bytes")
	writeFile(t, root, "Docs/2024/notes.txt", "notes")
	writeFile(t, root, "Other/ignored.txt", "nope")

	var buf bytes.Buffer
	exporter := NewExporter(files, nil)
	if err := exporter.ExportFolder(&buf, "Docs"); err != nil {
		t.Fatalf("ExportFolder: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	got := map[string]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open %s in archive: %v", zf.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s in archive: %v", zf.Name, err)
		}
		got[zf.Name] = string(content)
	}

	want := map[string]string{
		"report.pdf":     "pdf bytes",
		"2024/notes.txt": "notes",
	}
	if len(got) != len(want) {
		t.Fatalf("archive holds %v, want %v", got, want)
	}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("archive entry %s = %q, want %q", name, got[name], content)
		}
	}
}

func TestExportFolderMissing(t *testing.T) {
	files, _ := newBackend(t)
	exporter := NewExporter(files, nil)

	var buf bytes.Buffer
	err := exporter.ExportFolder(&buf, "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ExportFolder() error = %v, want ErrNotFound", err)
	}
	if buf.Len() != 0 {
		t.Error("missing folder should not produce archive bytes")
	}
}

func TestExportFile(t *testing.T) {
	files, root := newBackend(t)
	writeFile(t, root, "Docs/report.pdf", "pdf bytes")
	exporter := NewExporter(files, nil)

	rc, err := exporter.ExportFile("Docs/report.pdf")
	if err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if string(content) != "pdf bytes" {
		t.Errorf("exported content = %q, want %q", content, "pdf bytes")
	}

	if _, err := exporter.ExportFile("Docs/missing.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ExportFile(missing) error = %v, want ErrNotFound", err)
	}
}
