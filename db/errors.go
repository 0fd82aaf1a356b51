package db

import (
	"errors"
	"fmt"
)

var ErrAdapterFailure = errors.New("document store failure")

// AdapterError wraps an error returned by a DocumentStore call.
type AdapterError struct {
	Op         string
	Collection string
	Err        error
}

func (err *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Collection, err.Err)
}

func (err *AdapterError) Unwrap() error {
	return err.Err
}

func (err *AdapterError) Is(target error) bool {
	return target == ErrAdapterFailure
}

func adapterFailure(op, collection string, err error) error {
	return &AdapterError{Op: op, Collection: collection, Err: err}
}
