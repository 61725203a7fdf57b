package local

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func newBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	root := t.TempDir()
	b, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, root
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vault")
	if _, err := New(root); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Fatalf("root not created as directory: %v", err)
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("New should refuse a regular file as root")
	}
}

func TestRenameMovesSubtree(t *testing.T) {
	b, root := newBackend(t)
	if err := b.EnsureDir("Docs/2024"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Docs", "2024", "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := b.Rename("Docs", "Archive"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "Archive", "2024", "a.txt")); err != nil {
		t.Errorf("descendant missing after rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "Docs")); !os.IsNotExist(err) {
		t.Error("old directory still present after rename")
	}
}

func TestPromoteMovesStagedBytes(t *testing.T) {
	b, root := newBackend(t)
	if err := b.EnsureDir("Docs"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	staged := filepath.Join(t.TempDir(), "staged")
	if err := os.WriteFile(staged, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write staged: %v", err)
	}

	if err := b.Promote(staged, "Docs/a.bin"); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, "Docs", "a.bin"))
	if err != nil {
		t.Fatalf("read promoted: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("promoted content = %q, want %q", content, "payload")
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file should be gone after promote")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	b, _ := newBackend(t)
	if err := b.EnsureDir("Docs/2024"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	if err := b.Remove("Docs"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := b.Remove("Docs"); err != nil {
		t.Fatalf("repeat Remove: %v", err)
	}

	ok, err := b.Exists("Docs")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Docs should be gone")
	}
}

func TestWalkVisitsFilesOnly(t *testing.T) {
	b, root := newBackend(t)
	if err := b.EnsureDir("Docs/2024/empty"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	for path, content := range map[string]string{
		"Docs/a.txt":      "a",
		"Docs/2024/b.txt": "bb",
	} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(path)), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	var visited []string
	err := b.Walk("Docs", func(relPath string, size int64) error {
		visited = append(visited, relPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	sort.Strings(visited)
	want := []string{"2024/b.txt", "a.txt"}
	if len(visited) != len(want) {
		t.Fatalf("Walk visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("Walk visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestOpenReadsFile(t *testing.T) {
	b, root := newBackend(t)
	if err := b.EnsureDir("Docs"); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Docs", "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := b.Open("Docs/a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, want hello", content)
	}
}
