package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/config"
	"filevault/internal/domain/services"
	"filevault/internal/httputil"
)

// UploadHandler stages uploaded bytes outside the mirror tree and hands
// them to the hierarchy service, which owns the promote-or-rollback step.
type UploadHandler struct {
	hierarchy  services.HierarchyService
	stagingDir string
	logger     *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(hierarchy services.HierarchyService, stagingDir string, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		hierarchy:  hierarchy,
		stagingDir: stagingDir,
		logger:     logger,
	}
}

// UploadFile receives a multipart file and creates a file entry
// POST /api/files?parent_id={id}
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)

	var parentID *bson.ObjectID
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		id, err := bson.ObjectIDFromHex(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		parentID = &id
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	stagedPath, size, err := h.stage(file)
	if err != nil {
		h.logger.Error("failed to stage upload", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	name := path.Base(header.Filename)
	entry, err := h.hierarchy.CreateFile(r.Context(), &services.CreateFileRequest{
		Name:       name,
		ParentID:   parentID,
		Size:       size,
		Extension:  strings.TrimPrefix(path.Ext(name), "."),
		StagedPath: stagedPath,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("upload accepted",
		"id", entry.ID.Hex(),
		"name", entry.Name,
		"size", entry.Size,
		"user", httputil.GetUserID(r),
	)
	httputil.RespondJSON(w, http.StatusCreated, entry)
}

// stage copies the upload into the staging directory under a unique
// name so concurrent uploads of the same filename cannot collide.
func (h *UploadHandler) stage(src io.Reader) (string, int64, error) {
	stagedPath := filepath.Join(h.stagingDir, uuid.NewString())

	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", 0, fmt.Errorf("create staging file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(stagedPath)
		return "", 0, fmt.Errorf("write staging file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(stagedPath)
		return "", 0, fmt.Errorf("close staging file: %w", err)
	}

	return stagedPath, size, nil
}
