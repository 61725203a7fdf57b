package services

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/domain/models"
)

// HierarchyService keeps the entry store and the on-disk tree in
// lockstep. Every mutation either fully succeeds or fails cleanly with
// the store rolled back; a failed rollback surfaces as a
// domain.PartialFailureError.
type HierarchyService interface {
	// CreateFolder inserts a folder entry and creates its directory.
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Entry, error)

	// CreateFile inserts a file entry and moves the staged upload bytes
	// into their resolved location. On failure the entry is deleted and
	// the staged bytes removed.
	CreateFile(ctx context.Context, req *CreateFileRequest) (*models.Entry, error)

	// Get retrieves a single entry with its computed path.
	Get(ctx context.Context, id bson.ObjectID) (*models.Entry, error)

	// Children lists the non-trashed children of a folder (nil for roots).
	Children(ctx context.Context, parentID *bson.ObjectID) ([]models.Entry, error)

	// Rename changes an entry's name and renames the on-disk artifact.
	// For folders the descendants follow in the same filesystem rename.
	Rename(ctx context.Context, id bson.ObjectID, newName string) (*models.Entry, error)

	// Move reparents an entry (nil target = forest root) and moves the
	// on-disk artifact. Rejects moves that would create a cycle.
	Move(ctx context.Context, id bson.ObjectID, targetParentID *bson.ObjectID) (*models.Entry, error)

	// SetTrash flips the trash flag on an entry and every descendant.
	// Trashing sets expiry to now+retention; restoring clears it. The
	// filesystem is untouched either way.
	SetTrash(ctx context.Context, id bson.ObjectID, trash bool) error

	// TrashRoots lists trashed entries whose parent is absent or not
	// trashed - the display roots of trashed subtrees.
	TrashRoots(ctx context.Context) ([]models.Entry, error)
}

// CreateFolderRequest carries the inputs for CreateFolder.
type CreateFolderRequest struct {
	Name     string         `json:"name"`
	ParentID *bson.ObjectID `json:"parent_id"`
}

// CreateFileRequest carries the inputs for CreateFile. The upload
// receiver has already materialized the bytes at StagedPath.
type CreateFileRequest struct {
	Name       string
	ParentID   *bson.ObjectID
	Size       int64
	Extension  string
	StagedPath string
}

// PathResolver derives an entry's storage-root-relative path by walking
// its ancestor chain. Returns domain.ErrCorruptHierarchy if the chain
// contains a cycle.
type PathResolver interface {
	Resolve(ctx context.Context, entry *models.Entry) (string, error)
}
