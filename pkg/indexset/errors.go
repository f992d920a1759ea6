package indexset

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexRange reports an index or bound outside the universe.
	ErrIndexRange = errors.New("index out of range")
	// ErrSizeMismatch reports operands with different universe sizes.
	ErrSizeMismatch = errors.New("universe size mismatch")
	// ErrNotCompressed reports a query that requires a canonical set.
	ErrNotCompressed = errors.New("index set must be compressed")
	// ErrNotEmpty reports a resize of a set that already holds members.
	ErrNotEmpty = errors.New("index set is not empty")
	// ErrEmptySet reports a query that needs at least one member.
	ErrEmptySet = errors.New("index set is empty")
	// ErrInvalidIterator reports use of an end or foreign iterator.
	ErrInvalidIterator = errors.New("invalid iterator")
)

// ContractError is the panic value raised on a precondition violation.
// It wraps one of the package sentinels.
type ContractError struct {
	Op  string
	msg string
	err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("indexset: %s: %s: %v", e.Op, e.msg, e.err)
}

func (e *ContractError) Unwrap() error { return e.err }

func violate(op string, err error, format string, a ...any) {
	panic(&ContractError{Op: op, msg: fmt.Sprintf(format, a...), err: err})
}

func checkRange(op string, i, size Index) {
	if i >= size {
		violate(op, ErrIndexRange, "index %d is not in [0, %d)", i, size)
	}
}
