package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"filevault/internal/domain"
	"filevault/internal/httputil"
)

// respondDomainError maps domain errors to problem+json responses.
// Validation-class errors carry their message to the client; anything
// unexpected is logged and reported as a bare 500.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		status := httpErr.StatusCode()
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err)
		}
		httputil.RespondError(w, status, err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidHierarchy):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCorruptHierarchy), errors.Is(err, domain.ErrFilesystem):
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("unexpected error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
