package handler

import (
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/domain/models"
	"filevault/internal/domain/services"
	"filevault/internal/httputil"
)

// EntryHandler handles folder and entry HTTP requests
type EntryHandler struct {
	hierarchy services.HierarchyService
	logger    *slog.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(hierarchy services.HierarchyService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		hierarchy: hierarchy,
		logger:    logger,
	}
}

// UpdateEntryRequest is the PATCH body for rename and move. ParentID is
// tri-state: absent keeps the parent, null moves to the forest root.
type UpdateEntryRequest struct {
	Name     *string             `json:"name,omitempty"`
	ParentID httputil.OptionalID `json:"parent_id"`
}

// SetTrashRequest is the PATCH body for the trash flag.
type SetTrashRequest struct {
	IsTrash bool `json:"is_trash"`
}

// HealthCheck responds to liveness probes
// GET /health
func (h *EntryHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *EntryHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.hierarchy.CreateFolder(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entry)
}

// GetEntry retrieves an entry with its computed path
// GET /api/entries/{id}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entry, err := h.hierarchy.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entry)
}

// ListRootChildren lists the non-trashed root entries
// GET /api/folders/children
func (h *EntryHandler) ListRootChildren(w http.ResponseWriter, r *http.Request) {
	h.listChildren(w, r, nil)
}

// ListChildren lists the non-trashed children of a folder
// GET /api/folders/{id}/children
func (h *EntryHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.listChildren(w, r, &id)
}

func (h *EntryHandler) listChildren(w http.ResponseWriter, r *http.Request, parentID *bson.ObjectID) {
	children, err := h.hierarchy.Children(r.Context(), parentID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if children == nil {
		children = []models.Entry{}
	}
	httputil.RespondJSON(w, http.StatusOK, children)
}

// UpdateEntry renames and/or moves an entry
// PATCH /api/entries/{id}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil && !req.ParentID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "at least one of name or parent_id must be provided")
		return
	}

	var entry *models.Entry
	var err error

	if req.Name != nil {
		entry, err = h.hierarchy.Rename(r.Context(), id, *req.Name)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}

	if req.ParentID.Present {
		entry, err = h.hierarchy.Move(r.Context(), id, req.ParentID.Value)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}

	httputil.RespondJSON(w, http.StatusOK, entry)
}

// SetTrash trashes or restores an entry and its whole subtree
// PATCH /api/entries/{id}/trash
func (h *EntryHandler) SetTrash(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SetTrashRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.hierarchy.SetTrash(r.Context(), id, req.IsTrash); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	status := "restored"
	if req.IsTrash {
		status = "moved to trash"
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// DeleteEntry soft-deletes an entry; the UI delete is always a trash
// DELETE /api/entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.hierarchy.SetTrash(r.Context(), id, true); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "moved to trash"})
}

// ListTrashRoots lists the roots of trashed subtrees for the trash view
// GET /api/trash
func (h *EntryHandler) ListTrashRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := h.hierarchy.TrashRoots(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if roots == nil {
		roots = []models.Entry{}
	}
	httputil.RespondJSON(w, http.StatusOK, roots)
}

// pathID parses the {id} path segment, responding 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bool) {
	raw := r.PathValue("id")
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid entry id")
		return bson.ObjectID{}, false
	}
	return id, true
}
