package sql

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrMalformedStatement   = errors.New("malformed statement")
)

// UnsupportedOperationError is returned when the leading keyword of a
// statement is not SELECT, INSERT, UPDATE or DELETE.
type UnsupportedOperationError struct {
	Token string
}

func (err *UnsupportedOperationError) Error() string {
	if err.Token == "" {
		return "unsupported operation: empty statement"
	}
	return fmt.Sprintf("unsupported operation: %s", err.Token)
}

func (err *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// MalformedStatementError is returned when a statement's clauses do not fit
// the shape expected for its kind.
type MalformedStatementError struct {
	Kind   StatementType
	Reason string
}

func (err *MalformedStatementError) Error() string {
	return fmt.Sprintf("malformed %s statement: %s", err.Kind, err.Reason)
}

func (err *MalformedStatementError) Is(target error) bool {
	return target == ErrMalformedStatement
}

func malformed(kind StatementType, format string, args ...any) error {
	return &MalformedStatementError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
