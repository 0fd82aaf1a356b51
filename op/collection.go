package op

import (
	"errors"
	"iter"

	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/ps"
)

var ErrDocumentNotFound = ps.ErrDocumentNotFound

// CollectionOp gives direct, id-based access to one collection.
type CollectionOp struct {
	Name        string
	Persistence *ps.Persistence
}

func (store *Store) Collection(name string) (*CollectionOp, error) {
	if err := validCollection(name); err != nil {
		return nil, err
	}
	return &CollectionOp{Name: name, Persistence: store.Persistence}, nil
}

// Collections lists the collections holding at least one document.
func (store *Store) Collections() ([]string, error) {
	store.Persistence.RLock()
	defer store.Persistence.RUnlock()

	return store.Persistence.Collections()
}

func (op *CollectionOp) Get(id string) (core.Document, error) {
	op.Persistence.RLock()
	defer op.Persistence.RUnlock()

	data, err := op.Persistence.ReadDocument(op.Name, id)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data)
}

func (op *CollectionOp) Exists(id string) bool {
	_, err := op.Get(id)
	return err == nil
}

func (op *CollectionOp) Count() int {
	op.Persistence.RLock()
	defer op.Persistence.RUnlock()

	return op.Persistence.CountDocuments(op.Name)
}

// Scan yields every document in id order. Decode failures end the scan.
func (op *CollectionOp) Scan() iter.Seq2[string, core.Document] {
	return func(yield func(string, core.Document) bool) {
		op.Persistence.RLock()
		defer op.Persistence.RUnlock()

		for raw, err := range op.Persistence.ScanDocuments(op.Name) {
			if err != nil {
				return
			}
			doc, err := decodeDocument(raw.Data)
			if err != nil {
				return
			}
			if !yield(raw.ID, doc) {
				return
			}
		}
	}
}

// Restore rewrites the collection to its state as of asof in a new commit.
// Restoring an unchanged collection is not an error and returns nil.
func (op *CollectionOp) Restore(asof ps.Transaction, identity core.Identity) (*ps.Transaction, error) {
	txn, err := op.Persistence.RestoreCollection(asof, op.Name, identity)
	if errors.Is(err, ps.ErrEmptyTransaction) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
