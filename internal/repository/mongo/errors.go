package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// isDuplicateKeyError checks if error is a unique index violation
func isDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// isNoDocumentsError checks if error is a "no documents" error
func isNoDocumentsError(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
