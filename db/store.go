package db

import (
	"context"

	"github.com/nickyhof/DocQL/core"
)

// IDField is the document field holding the store-assigned identifier.
const IDField = "_id"

// DocumentStore is the persistence boundary the engine executes against.
// Implementations own durability and any concurrency control between writes.
type DocumentStore interface {
	// Find returns the documents of collection matching predicate.
	// An empty predicate matches every document.
	Find(ctx context.Context, collection string, predicate core.Predicate) ([]core.Document, error)
	// InsertOne stores document and returns its identifier.
	InsertOne(ctx context.Context, collection string, document core.Document) (string, error)
	// UpdateMany sets the assigned fields on every matching document and
	// returns how many documents changed.
	UpdateMany(ctx context.Context, collection string, predicate core.Predicate, assignments map[string]core.Literal) (int64, error)
	// DeleteMany removes every matching document and returns how many were removed.
	DeleteMany(ctx context.Context, collection string, predicate core.Predicate) (int64, error)
}
