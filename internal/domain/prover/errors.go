package prover

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned by repositories when no record exists for the
	// requested stage and batch. It is an expected outcome and classifies as
	// JobsNotFound.
	ErrJobNotFound = errors.New("job not found")

	// ErrRepository wraps connectivity, transport and constraint failures of
	// the persistence layer.
	ErrRepository = errors.New("repository error")

	// ErrInvalidMaxAttempts is returned for a non positive attempt budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be a positive integer")

	// ErrInvalidBatchNumber is returned when a batch number cannot be parsed.
	ErrInvalidBatchNumber = errors.New("invalid batch number")

	// ErrInvalidProtocolVersion is returned for out of range protocol versions.
	ErrInvalidProtocolVersion = errors.New("invalid protocol version")

	// ErrInvalidVKHash is returned when a verification key hash is malformed.
	ErrInvalidVKHash = errors.New("invalid verification key hash")
)

// DecodeError reports a stored field that could not be converted into its
// typed representation. It is never defaulted away: a DecodeError always
// aborts the operation that triggered it.
type DecodeError struct {
	Table  string
	Column string
	// BatchNumber is the batch of the offending row when it could be decoded.
	BatchNumber *BatchNumber
	Value       any
	Err         error
}

// NewDecodeError constructs a DecodeError.
func NewDecodeError(table, column string, batch *BatchNumber, value any, err error) *DecodeError {
	return &DecodeError{Table: table, Column: column, BatchNumber: batch, Value: value, Err: err}
}

func (e *DecodeError) Error() string {
	if e.BatchNumber != nil {
		return fmt.Sprintf("decode %s.%s (batch %d, value %v): %v", e.Table, e.Column, *e.BatchNumber, e.Value, e.Err)
	}
	return fmt.Sprintf("decode %s.%s (value %v): %v", e.Table, e.Column, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err carries a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
