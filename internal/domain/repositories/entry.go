package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/domain/models"
)

// EntryRepository defines data access operations for hierarchy entries.
// Implementations never touch the filesystem.
type EntryRepository interface {
	// Create inserts a new entry and assigns its ID. Returns
	// domain.ErrDuplicateName if any entry in the store already holds the
	// same name; the check is atomic with the insert.
	Create(ctx context.Context, entry *models.Entry) error

	// GetByID retrieves an entry by ID. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Entry, error)

	// Update rewrites the mutable fields of an entry. Returns
	// domain.ErrNotFound if absent and domain.ErrDuplicateName if the new
	// name collides with another entry.
	Update(ctx context.Context, entry *models.Entry) error

	// Delete removes an entry record. Deleting an absent entry is not an
	// error; the reaper relies on this for idempotence.
	Delete(ctx context.Context, id bson.ObjectID) error

	// ListChildren lists the immediate children of a parent (nil for the
	// forest roots). Trashed entries are excluded unless includeTrashed.
	ListChildren(ctx context.Context, parentID *bson.ObjectID, includeTrashed bool) ([]models.Entry, error)

	// ListTrashed lists every trashed entry, roots and descendants alike.
	ListTrashed(ctx context.Context) ([]models.Entry, error)

	// ListExpired lists trashed entries whose expiry time is at or before
	// the given instant.
	ListExpired(ctx context.Context, now time.Time) ([]models.Entry, error)
}
