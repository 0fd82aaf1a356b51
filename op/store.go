package op

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nickyhof/DocQL/core"
	"github.com/nickyhof/DocQL/ps"
)

const idField = "_id"

var (
	ErrDuplicateID       = errors.New("duplicate document id")
	ErrInvalidID         = errors.New("invalid document id")
	ErrImmutableID       = errors.New("document id cannot be changed")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidDocument   = errors.New("document failed schema validation")
)

// Store keeps collections of documents in a git-backed Persistence.
// Every successful write is a single commit authored by the identity found
// in the call's context, or the store's default identity.
type Store struct {
	Persistence *ps.Persistence
	Identity    core.Identity

	mu      sync.RWMutex
	schemas map[string]*schema
}

func NewStore(persistence *ps.Persistence, identity core.Identity) *Store {
	return &Store{
		Persistence: persistence,
		Identity:    identity,
		schemas:     make(map[string]*schema),
	}
}

func (store *Store) identity(ctx context.Context) core.Identity {
	if identity, ok := core.IdentityFromContext(ctx); ok {
		return identity
	}
	return store.Identity
}

// Find returns the documents of collection matching predicate, ordered by id.
func (store *Store) Find(ctx context.Context, collection string, predicate core.Predicate) ([]core.Document, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}

	store.Persistence.RLock()
	defer store.Persistence.RUnlock()

	var documents []core.Document
	for raw, err := range store.Persistence.ScanDocuments(collection) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := decodeDocument(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", collection, raw.ID, err)
		}
		if predicate.Matches(doc) {
			documents = append(documents, doc)
		}
	}
	return documents, nil
}

// InsertOne stores a copy of document. A missing _id is generated as a UUIDv7.
func (store *Store) InsertOne(ctx context.Context, collection string, document core.Document) (string, error) {
	if err := validCollection(collection); err != nil {
		return "", err
	}

	doc := make(core.Document, len(document)+1)
	for field, value := range document {
		doc[field] = value
	}

	id, err := documentID(doc)
	if err != nil {
		return "", err
	}
	doc[idField] = id

	if err := store.validate(collection, doc); err != nil {
		return "", err
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	store.Persistence.Lock()
	defer store.Persistence.Unlock()

	if store.Persistence.HasDocument(collection, id) {
		return "", fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
	}

	txn, err := store.Persistence.BeginTransaction()
	if err != nil {
		return "", err
	}
	txn.AddWrite(collection, id, data)

	if _, err := txn.Commit(store.identity(ctx), commitMessage("insert", collection, 1)); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateMany sets every assignment on the matching documents. Only documents
// whose values actually change are written and counted.
func (store *Store) UpdateMany(ctx context.Context, collection string, predicate core.Predicate, assignments map[string]core.Literal) (int64, error) {
	if err := validCollection(collection); err != nil {
		return 0, err
	}

	store.Persistence.Lock()
	defer store.Persistence.Unlock()

	txn, err := store.Persistence.BeginTransaction()
	if err != nil {
		return 0, err
	}

	for raw, err := range store.Persistence.ScanDocuments(collection) {
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		doc, err := decodeDocument(raw.Data)
		if err != nil {
			return 0, fmt.Errorf("document %s/%s: %w", collection, raw.ID, err)
		}
		if !predicate.Matches(doc) || !apply(doc, assignments) {
			continue
		}

		if id, _ := doc[idField].(string); id != raw.ID {
			return 0, fmt.Errorf("%w: %s/%s", ErrImmutableID, collection, raw.ID)
		}
		if err := store.validate(collection, doc); err != nil {
			return 0, err
		}

		data, err := encodeDocument(doc)
		if err != nil {
			return 0, fmt.Errorf("failed to encode document: %w", err)
		}
		txn.AddWrite(collection, raw.ID, data)
	}

	modified := txn.OperationCount()
	if modified == 0 {
		return 0, nil
	}

	if _, err := txn.Commit(store.identity(ctx), commitMessage("update", collection, modified)); err != nil {
		return 0, err
	}
	return int64(modified), nil
}

// DeleteMany removes every matching document in a single commit.
func (store *Store) DeleteMany(ctx context.Context, collection string, predicate core.Predicate) (int64, error) {
	if err := validCollection(collection); err != nil {
		return 0, err
	}

	store.Persistence.Lock()
	defer store.Persistence.Unlock()

	txn, err := store.Persistence.BeginTransaction()
	if err != nil {
		return 0, err
	}

	for raw, err := range store.Persistence.ScanDocuments(collection) {
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if len(predicate) > 0 {
			doc, err := decodeDocument(raw.Data)
			if err != nil {
				return 0, fmt.Errorf("document %s/%s: %w", collection, raw.ID, err)
			}
			if !predicate.Matches(doc) {
				continue
			}
		}
		txn.AddDelete(collection, raw.ID)
	}

	deleted := txn.OperationCount()
	if deleted == 0 {
		return 0, nil
	}

	if _, err := txn.Commit(store.identity(ctx), commitMessage("delete", collection, deleted)); err != nil {
		return 0, err
	}
	return int64(deleted), nil
}

// apply sets each assignment on doc and reports whether anything changed.
func apply(doc core.Document, assignments map[string]core.Literal) bool {
	changed := false
	for field, literal := range assignments {
		if current, exists := doc[field]; exists && literal.Equals(current) {
			continue
		}
		doc[field] = literal.Value()
		changed = true
	}
	return changed
}

func documentID(doc core.Document) (string, error) {
	value, exists := doc[idField]
	if !exists || value == nil {
		return uuid.Must(uuid.NewV7()).String(), nil
	}

	id, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %v is not a string", ErrInvalidID, value)
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

func validCollection(collection string) error {
	if collection == "" || collection == "." || collection == ".." || strings.ContainsAny(collection, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	return nil
}

// floatValue marshals a float64 so that it reads back as a float: a whole
// number is written as 4.0 rather than 4.
type floatValue float64

func (f floatValue) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(float64(f))
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(data, ".eE") {
		data = append(data, ".0"...)
	}
	return data, nil
}

func encodeDocument(doc core.Document) ([]byte, error) {
	return json.Marshal(markFloats(map[string]any(doc)))
}

func markFloats(value any) any {
	switch v := value.(type) {
	case float64:
		return floatValue(v)
	case float32:
		return floatValue(v)
	case core.Document:
		return markFloats(map[string]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = markFloats(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = markFloats(inner)
		}
		return out
	}
	return value
}

// decodeDocument parses stored JSON. Numbers written with a fraction or
// exponent come back as float64, all others as int64.
func decodeDocument(data []byte) (core.Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc core.Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	for field, value := range doc {
		doc[field] = normalize(value)
	}
	return doc, nil
}

func normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		if !strings.ContainsAny(v.String(), ".eE") {
			if i, err := v.Int64(); err == nil {
				return i
			}
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, inner := range v {
			v[key] = normalize(inner)
		}
	case []any:
		for i, inner := range v {
			v[i] = normalize(inner)
		}
	}
	return value
}

func commitMessage(op, collection string, n int) string {
	if n == 1 {
		return fmt.Sprintf("%s %s: 1 document", op, collection)
	}
	return fmt.Sprintf("%s %s: %d documents", op, collection, n)
}
