package db

import (
	"context"

	"github.com/kailas-cloud/suntan/internal/domain/document"
)

// DefaultWriterBuffer is the writer buffer size used when none is configured.
const DefaultWriterBuffer = 50_000_000

// Engine is the index engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the sub-interfaces below
type Engine interface {
	Pinger
	Counter
	Searcher
	WriterOpener
	Close() error
}

// Pinger checks engine availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the live (committed) document count.
type Counter interface {
	DocCount(ctx context.Context) (uint64, error)
}

// Searcher runs ranked free-text queries.
type Searcher interface {
	Search(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// WriterOpener constructs document writers.
type WriterOpener interface {
	// Writer opens a writer that buffers up to bufferBytes before flushing
	// to the engine. A non-positive size selects DefaultWriterBuffer.
	Writer(ctx context.Context, bufferBytes int) (Writer, error)
}

// Writer adds documents and makes them visible on Commit. Close releases the
// writer; uncommitted documents are discarded where the engine supports it.
type Writer interface {
	Add(ctx context.Context, doc *document.Document) error
	Commit(ctx context.Context) error
	Close() error
}
