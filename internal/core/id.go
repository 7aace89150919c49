package core

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh identifier in the document store's ObjectID format.
// Every backend uses it so identifier validity is the same everywhere.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidateID reports ErrInvalidID when id is not a 24-hex ObjectID.
func ValidateID(id string) error {
	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
