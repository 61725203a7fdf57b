package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/domain"
	"filevault/internal/domain/models"
	"filevault/internal/domain/repositories"
	"filevault/internal/domain/services"
)

type pathResolver struct {
	entries repositories.EntryRepository
}

// NewPathResolver creates a resolver that derives paths by walking the
// parent chain of an entry up to its forest root.
func NewPathResolver(entries repositories.EntryRepository) services.PathResolver {
	return &pathResolver{entries: entries}
}

// Resolve joins the ancestor names from the root down to the entry with
// "/". The walk tracks visited ids; revisiting one means the stored
// tree has a cycle and resolution fails instead of looping forever.
func (r *pathResolver) Resolve(ctx context.Context, entry *models.Entry) (string, error) {
	segments := []string{entry.Name}
	seen := map[bson.ObjectID]struct{}{entry.ID: {}}

	parentID := entry.ParentID
	for parentID != nil {
		if _, ok := seen[*parentID]; ok {
			return "", fmt.Errorf("parent chain of entry %s revisits %s: %w",
				entry.ID.Hex(), parentID.Hex(), domain.ErrCorruptHierarchy)
		}

		parent, err := r.entries.GetByID(ctx, *parentID)
		if err != nil {
			return "", fmt.Errorf("resolve path of entry %s: %w", entry.ID.Hex(), err)
		}

		seen[parent.ID] = struct{}{}
		segments = append(segments, parent.Name)
		parentID = parent.ParentID
	}

	// Collected leaf-first; flip to root-first.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return strings.Join(segments, "/"), nil
}
