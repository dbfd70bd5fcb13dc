// Package docstore is the keyed document store behind user profiles.
package docstore

import (
	"context"

	"github.com/Johnm75/Tienda/internal/domain"
)

// Document is a flat set of named fields.
type Document map[string]any

// Store defines the document operations the services rely on.
// Consumers define this interface, not the MongoDB implementation.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields Document) error
	Update(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
}

// ErrNotFound is wrapped by every StoreError for a missing document.
var ErrNotFound = domain.ErrDocumentNotFound

func storeError(op, collection, id string, err error) error {
	return &domain.StoreError{Op: op, Collection: collection, ID: id, Err: err}
}
