package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface keeps the handler layer free of
// per-error switch statements.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors for the hierarchy core - use with errors.Is()
var (
	// ErrNotFound indicates a referenced entry, parent or target is absent.
	ErrNotFound = errors.New("entry not found")

	// ErrDuplicateName indicates a global name collision. Names are unique
	// across the whole tree, not per parent.
	ErrDuplicateName = errors.New("name already exists")

	// ErrInvalidHierarchy indicates a structurally invalid mutation:
	// a cycle-creating move, a non-folder parent, or a trash-state violation.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")

	// ErrCorruptHierarchy indicates a cycle was detected while resolving a
	// path. The stored tree already violates the acyclic invariant.
	ErrCorruptHierarchy = errors.New("corrupt hierarchy")

	// ErrFilesystem indicates an I/O failure during a filesystem step.
	ErrFilesystem = errors.New("filesystem failure")
)

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a name collision together with the entry that
// already holds the name, so the handler can point the client at it.
type ConflictError struct {
	Message string
	EntryID string // ID of the existing entry holding the name
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrDuplicateName
func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicateName
}

// PartialFailureError reports the fatal condition where a filesystem step
// failed after the store step committed and the compensating rollback also
// failed. It is never retried automatically; an operator has to reconcile
// the store against the disk.
type PartialFailureError struct {
	Op          string // operation that was in flight (rename, move, ...)
	EntryID     string
	FsErr       error // the original filesystem error
	RollbackErr error // the error that defeated the rollback
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure during %s of entry %s: filesystem: %v; rollback: %v",
		e.Op, e.EntryID, e.FsErr, e.RollbackErr)
}

func (e *PartialFailureError) StatusCode() int { return http.StatusInternalServerError }

func (e *PartialFailureError) Unwrap() error { return e.FsErr }
