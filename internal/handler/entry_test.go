package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filevault/internal/domain/models"
	"filevault/internal/domain/services"
	"filevault/internal/repository/memory"
	"filevault/internal/service/hierarchy"
	"filevault/internal/storage/local"
)

func newTestServer(t *testing.T) (*http.ServeMux, services.HierarchyService) {
	t.Helper()

	files, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	svc := hierarchy.New(hierarchy.Config{
		Entries:   memory.NewEntryRepository(),
		Files:     files,
		Retention: 30 * 24 * time.Hour,
	})

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	h := NewEntryHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/folders", h.CreateFolder)
	mux.HandleFunc("GET /api/folders/children", h.ListRootChildren)
	mux.HandleFunc("GET /api/folders/{id}/children", h.ListChildren)
	mux.HandleFunc("GET /api/entries/{id}", h.GetEntry)
	mux.HandleFunc("PATCH /api/entries/{id}", h.UpdateEntry)
	mux.HandleFunc("PATCH /api/entries/{id}/trash", h.SetTrash)
	mux.HandleFunc("DELETE /api/entries/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /api/trash", h.ListTrashRoots)

	return mux, svc
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEntry(t *testing.T, rec *httptest.ResponseRecorder) models.Entry {
	t.Helper()
	var entry models.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("decode entry response: %v", err)
	}
	return entry
}

func TestCreateFolderEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "Docs"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body)
	}
	entry := decodeEntry(t, rec)
	if entry.Name != "Docs" || entry.Path != "Docs" {
		t.Errorf("created entry = %+v, want name and path Docs", entry)
	}

	// Global uniqueness surfaces as 409 problem+json.
	rec = doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "Docs"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("duplicate Content-Type = %q, want problem+json", ct)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "a/b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("slash name status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/folders", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdateEntryEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	docs := decodeEntry(t, doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "Docs"}`))
	year := decodeEntry(t, doJSON(t, mux, http.MethodPost, "/api/folders",
		fmt.Sprintf(`{"name": "2024", "parent_id": %q}`, docs.ID.Hex())))

	// Rename only: parent_id absent keeps the parent.
	rec := doJSON(t, mux, http.MethodPatch, "/api/entries/"+year.ID.Hex(), `{"name": "2025"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d (body %s)", rec.Code, rec.Body)
	}
	renamed := decodeEntry(t, rec)
	if renamed.Path != "Docs/2025" {
		t.Errorf("renamed path = %q, want Docs/2025", renamed.Path)
	}

	// Explicit null moves to the forest root.
	rec = doJSON(t, mux, http.MethodPatch, "/api/entries/"+year.ID.Hex(), `{"parent_id": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d (body %s)", rec.Code, rec.Body)
	}
	moved := decodeEntry(t, rec)
	if moved.Path != "2025" {
		t.Errorf("moved path = %q, want 2025", moved.Path)
	}

	// Neither field present is a 400.
	rec = doJSON(t, mux, http.MethodPatch, "/api/entries/"+year.ID.Hex(), `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Moving a folder into its own subtree is rejected.
	rec = doJSON(t, mux, http.MethodPatch, "/api/entries/"+docs.ID.Hex(),
		fmt.Sprintf(`{"parent_id": %q}`, docs.ID.Hex()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cycle move status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, mux, http.MethodPatch, "/api/entries/not-an-id", `{"name": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTrashEndpoints(t *testing.T) {
	mux, _ := newTestServer(t)

	docs := decodeEntry(t, doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "Docs"}`))
	decodeEntry(t, doJSON(t, mux, http.MethodPost, "/api/folders",
		fmt.Sprintf(`{"name": "2024", "parent_id": %q}`, docs.ID.Hex())))

	// DELETE is a soft delete: the whole subtree lands in the trash.
	rec := doJSON(t, mux, http.MethodDelete, "/api/entries/"+docs.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d (body %s)", rec.Code, rec.Body)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/folders/children", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("children status = %d", rec.Code)
	}
	var children []models.Entry
	if err := json.NewDecoder(rec.Body).Decode(&children); err != nil {
		t.Fatalf("decode children: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("trashed folder still listed: %v", children)
	}

	// Only the subtree root shows up in the trash view.
	rec = doJSON(t, mux, http.MethodGet, "/api/trash", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trash status = %d", rec.Code)
	}
	var roots []models.Entry
	if err := json.NewDecoder(rec.Body).Decode(&roots); err != nil {
		t.Fatalf("decode trash roots: %v", err)
	}
	if len(roots) != 1 || roots[0].Name != "Docs" {
		t.Errorf("trash roots = %v, want only Docs", roots)
	}

	// Restore brings the subtree back.
	rec = doJSON(t, mux, http.MethodPatch, "/api/entries/"+docs.ID.Hex()+"/trash", `{"is_trash": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d (body %s)", rec.Code, rec.Body)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/folders/"+docs.ID.Hex()+"/children", "")
	if err := json.NewDecoder(rec.Body).Decode(&children); err != nil {
		t.Fatalf("decode children after restore: %v", err)
	}
	if len(children) != 1 || children[0].Name != "2024" {
		t.Errorf("children after restore = %v, want 2024", children)
	}
}

func TestGetEntryEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	docs := decodeEntry(t, doJSON(t, mux, http.MethodPost, "/api/folders", `{"name": "Docs"}`))

	rec := doJSON(t, mux, http.MethodGet, "/api/entries/"+docs.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decodeEntry(t, rec)
	if got.Path != "Docs" {
		t.Errorf("entry path = %q, want Docs", got.Path)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/entries/ffffffffffffffffffffffff", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
