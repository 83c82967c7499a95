package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for index engine operations.
var (
	ErrIndexNotFound  = errors.New("db: index not found")
	ErrIndexExists    = errors.New("db: index already exists")
	ErrWriterClosed   = errors.New("db: writer closed")
	ErrMissingID      = errors.New("db: document has no id")
	ErrSchemaMismatch = errors.New("db: existing index does not match definition")
	ErrFlushFailed    = errors.New("db: buffered documents were not written")
)

// Op names used for error context.
const (
	OpOpen        = "open"
	OpCreateIndex = "create index"
	OpAdd         = "add"
	OpFlush       = "flush"
	OpCommit      = "commit"
	OpSearch      = "search"
	OpCount       = "count"
	OpPing        = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// FlushError reports the buffered documents a failed flush dropped. Writers
// discard a failed buffer rather than resubmit it, so IDs are lost for good.
// It matches ErrFlushFailed.
type FlushError struct {
	IDs []string
	Err error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("%d buffered documents lost: %v", len(e.IDs), e.Err)
}

func (e *FlushError) Unwrap() []error { return []error{ErrFlushFailed, e.Err} }

// LostIDs returns the ids carried by a FlushError anywhere in err's chain.
func LostIDs(err error) []string {
	var fe *FlushError
	if errors.As(err, &fe) {
		return fe.IDs
	}
	return nil
}
