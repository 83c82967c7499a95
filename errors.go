package suntan

import (
	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidSchema     = domain.ErrInvalidSchema
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrSourceUnavailable = domain.ErrSourceUnavailable
	ErrSourceRead        = domain.ErrSourceRead
	ErrWriterOpen        = domain.ErrWriterOpen
	ErrWriteFailed       = domain.ErrWriteFailed
	ErrCommitFailed      = domain.ErrCommitFailed
	ErrTargetNotEmpty    = domain.ErrTargetNotEmpty
)

// ErrSchemaMismatch is returned by Open when the existing index was built
// from a different schema.
var ErrSchemaMismatch = db.ErrSchemaMismatch
