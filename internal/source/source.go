// Package source defines what the concrete source readers share: the batch
// iterator they hand to the migration driver and their defaults.
package source

import (
	"context"

	"github.com/kailas-cloud/suntan/internal/domain/document"
)

// DefaultBatchSize is the number of records per batch when none is configured.
const DefaultBatchSize = 1000

// Iterator walks a source one batch of raw records at a time. Callers check
// HasNext before each Next and must Close the iterator.
type Iterator interface {
	HasNext() bool
	Next(ctx context.Context) ([]document.Raw, error)
	Close() error
}
