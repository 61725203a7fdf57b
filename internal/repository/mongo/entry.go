package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"filevault/internal/domain"
	"filevault/internal/domain/models"
	"filevault/internal/domain/repositories"
)

const entryCollection = "entries"

// EntryRepository is the MongoDB implementation of
// repositories.EntryRepository. Global name uniqueness is enforced by a
// unique index so the duplicate check is atomic with the write.
type EntryRepository struct {
	db *mongo.Database
}

var _ repositories.EntryRepository = (*EntryRepository)(nil)

// NewEntryRepository creates the repository and ensures its indexes.
func NewEntryRepository(ctx context.Context, db *mongo.Database) (*EntryRepository, error) {
	r := &EntryRepository{db: db}

	// Uniqueness is deliberately global (name alone, not parent+name),
	// matching the store policy the rest of the system assumes.
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "parentId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isTrash", Value: 1}, {Key: "expiryTime", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure entry indexes: %w", err)
	}

	return r, nil
}

func (r *EntryRepository) collection() *mongo.Collection {
	return r.db.Collection(entryCollection)
}

// Create inserts a new entry document and assigns its ID.
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	res, err := r.collection().InsertOne(ctx, entry)
	if err != nil {
		if isDuplicateKeyError(err) {
			return r.conflictError(ctx, entry.Name)
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// GetByID finds an entry by its ID.
func (r *EntryRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Entry, error) {
	var entry models.Entry
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if isNoDocumentsError(err) {
			return nil, fmt.Errorf("entry %s: %w", id.Hex(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &entry, nil
}

// Update rewrites the mutable fields of an entry document.
func (r *EntryRepository) Update(ctx context.Context, entry *models.Entry) error {
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": entry.ID},
		bson.M{"$set": bson.M{
			"name":       entry.Name,
			"parentId":   entry.ParentID,
			"isTrash":    entry.IsTrash,
			"expiryTime": entry.ExpiryTime,
			"updatedAt":  entry.UpdatedAt,
		}},
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return r.conflictError(ctx, entry.Name)
		}
		return fmt.Errorf("update entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("entry %s: %w", entry.ID.Hex(), domain.ErrNotFound)
	}
	return nil
}

// Delete removes an entry document. Absent entries are ignored.
func (r *EntryRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if _, err := r.collection().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// ListChildren lists the immediate children of a parent, roots when
// parentID is nil.
func (r *EntryRepository) ListChildren(ctx context.Context, parentID *bson.ObjectID, includeTrashed bool) ([]models.Entry, error) {
	filter := bson.M{"parentId": parentID}
	if !includeTrashed {
		filter["isTrash"] = bson.M{"$ne": true}
	}
	return r.find(ctx, filter)
}

// ListTrashed lists every trashed entry.
func (r *EntryRepository) ListTrashed(ctx context.Context) ([]models.Entry, error) {
	return r.find(ctx, bson.M{"isTrash": true})
}

// ListExpired lists trashed entries due for permanent deletion.
func (r *EntryRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Entry, error) {
	return r.find(ctx, bson.M{
		"isTrash":    true,
		"expiryTime": bson.M{"$lte": now},
	})
}

func (r *EntryRepository) find(ctx context.Context, filter bson.M) ([]models.Entry, error) {
	cursor, err := r.collection().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

// conflictError looks up the entry holding the duplicated name so the
// caller can report which entry is in the way.
func (r *EntryRepository) conflictError(ctx context.Context, name string) error {
	var existing models.Entry
	err := r.collection().FindOne(ctx, bson.M{"name": name}).Decode(&existing)
	if err != nil {
		return fmt.Errorf("entry %q: %w", name, domain.ErrDuplicateName)
	}
	return &domain.ConflictError{
		Message: fmt.Sprintf("an entry named %q already exists", name),
		EntryID: existing.ID.Hex(),
	}
}
