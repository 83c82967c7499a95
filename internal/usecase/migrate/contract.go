package migrate

import (
	"context"
	"time"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/source"
)

// BatchIterator pulls raw records from a source one batch at a time.
type BatchIterator = source.Iterator

// Source is the read-only store being migrated.
type Source interface {
	DocCount(ctx context.Context) (uint64, error)
	Batches(ctx context.Context) (BatchIterator, error)
}

// Target is the index being populated.
type Target interface {
	DocCount(ctx context.Context) (uint64, error)
	Writer(ctx context.Context, bufferBytes int) (db.Writer, error)
}

// Recorder receives run metrics.
type Recorder interface {
	ObserveBatch(records int, d time.Duration)
	AddDocs(outcome migration.Outcome, n int)
	AddFieldError(reason string)
	ObserveRun(state migration.State, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBatch(int, time.Duration)           {}
func (nopRecorder) AddDocs(migration.Outcome, int)            {}
func (nopRecorder) AddFieldError(string)                      {}
func (nopRecorder) ObserveRun(migration.State, time.Duration) {}
