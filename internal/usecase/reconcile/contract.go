package reconcile

import (
	"context"

	"github.com/kailas-cloud/suntan/internal/db"
)

// IndexReader reads the committed index.
type IndexReader interface {
	DocCount(ctx context.Context) (uint64, error)
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}
