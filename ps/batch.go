package ps

import (
	"errors"
	"fmt"

	"github.com/nickyhof/DocQL/core"
)

var ErrEmptyTransaction = errors.New("no operations to commit")

// Operation is a single pending document write or delete.
type Operation struct {
	Type       OperationType
	Collection string
	ID         string
	Data       []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// TransactionBuilder batches document operations into a single commit.
// The builder does not lock; callers hold Persistence.Lock from the reads
// that produced the operations through Commit.
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
}

// BeginTransaction starts a new batch of operations.
func (p *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{persistence: p}, nil
}

// AddWrite stages data as the document id of collection.
func (tb *TransactionBuilder) AddWrite(collection, id string, data []byte) {
	tb.operations = append(tb.operations, Operation{
		Type:       WriteOp,
		Collection: collection,
		ID:         id,
		Data:       data,
	})
}

// AddDelete stages the removal of document id from collection.
func (tb *TransactionBuilder) AddDelete(collection, id string) {
	tb.operations = append(tb.operations, Operation{
		Type:       DeleteOp,
		Collection: collection,
		ID:         id,
	})
}

// OperationCount returns the number of staged operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}

// Commit writes all staged operations as one commit with the given message.
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if len(tb.operations) == 0 {
		return Transaction{}, ErrEmptyTransaction
	}

	edits := make([]docEdit, 0, len(tb.operations))
	for _, op := range tb.operations {
		edit := docEdit{Collection: op.Collection, Name: op.ID + documentExt}
		switch op.Type {
		case WriteOp:
			hash, err := tb.persistence.writeBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to store %s: %w", DocumentPath(op.Collection, op.ID), err)
			}
			edit.Hash = hash
		case DeleteOp:
			edit.Remove = true
		}
		edits = append(edits, edit)
	}

	txn, err := tb.persistence.commitEdits(edits, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.operations = nil
	return txn, nil
}

// Rollback discards all staged operations
func (tb *TransactionBuilder) Rollback() {
	tb.operations = nil
}
