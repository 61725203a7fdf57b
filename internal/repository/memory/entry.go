// Package memory provides an in-memory entry store. It backs the
// STORE_DRIVER=memory development mode and the service-level tests,
// enforcing the same global name uniqueness as the Mongo store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"filevault/internal/domain"
	"filevault/internal/domain/models"
	"filevault/internal/domain/repositories"
)

// EntryRepository is a map-backed repositories.EntryRepository.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[bson.ObjectID]*models.Entry
	byName  map[string]bson.ObjectID
}

var _ repositories.EntryRepository = (*EntryRepository)(nil)

// NewEntryRepository creates an empty in-memory store.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		entries: make(map[bson.ObjectID]*models.Entry),
		byName:  make(map[string]bson.ObjectID),
	}
}

// Create inserts a new entry, enforcing global name uniqueness under
// the store lock so concurrent creates cannot both pass the check.
func (r *EntryRepository) Create(_ context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[entry.Name]; ok {
		return &domain.ConflictError{
			Message: fmt.Sprintf("an entry named %q already exists", entry.Name),
			EntryID: existing.Hex(),
		}
	}

	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}

	stored := *entry
	r.entries[stored.ID] = &stored
	r.byName[stored.Name] = stored.ID
	return nil
}

// GetByID retrieves a copy of an entry.
func (r *EntryRepository) GetByID(_ context.Context, id bson.ObjectID) (*models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id.Hex(), domain.ErrNotFound)
	}
	copied := *entry
	return &copied, nil
}

// Update rewrites the mutable fields of a stored entry.
func (r *EntryRepository) Update(_ context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[entry.ID]
	if !ok {
		return fmt.Errorf("entry %s: %w", entry.ID.Hex(), domain.ErrNotFound)
	}

	if entry.Name != stored.Name {
		if existing, ok := r.byName[entry.Name]; ok && existing != entry.ID {
			return &domain.ConflictError{
				Message: fmt.Sprintf("an entry named %q already exists", entry.Name),
				EntryID: existing.Hex(),
			}
		}
		delete(r.byName, stored.Name)
		r.byName[entry.Name] = entry.ID
	}

	stored.Name = entry.Name
	stored.ParentID = entry.ParentID
	stored.IsTrash = entry.IsTrash
	stored.ExpiryTime = entry.ExpiryTime
	stored.UpdatedAt = entry.UpdatedAt
	return nil
}

// Delete removes an entry. Absent entries are ignored.
func (r *EntryRepository) Delete(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.entries[id]; ok {
		delete(r.byName, stored.Name)
		delete(r.entries, id)
	}
	return nil
}

// ListChildren lists the immediate children of a parent, roots when
// parentID is nil.
func (r *EntryRepository) ListChildren(_ context.Context, parentID *bson.ObjectID, includeTrashed bool) ([]models.Entry, error) {
	return r.list(func(e *models.Entry) bool {
		if !includeTrashed && e.IsTrash {
			return false
		}
		if parentID == nil {
			return e.ParentID == nil
		}
		return e.ParentID != nil && *e.ParentID == *parentID
	}), nil
}

// ListTrashed lists every trashed entry.
func (r *EntryRepository) ListTrashed(_ context.Context) ([]models.Entry, error) {
	return r.list(func(e *models.Entry) bool { return e.IsTrash }), nil
}

// ListExpired lists trashed entries due for permanent deletion.
func (r *EntryRepository) ListExpired(_ context.Context, now time.Time) ([]models.Entry, error) {
	return r.list(func(e *models.Entry) bool {
		return e.IsTrash && e.ExpiryTime != nil && !e.ExpiryTime.After(now)
	}), nil
}

func (r *EntryRepository) list(match func(*models.Entry) bool) []models.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []models.Entry
	for _, e := range r.entries {
		if match(e) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
