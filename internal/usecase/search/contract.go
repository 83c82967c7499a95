package search

import (
	"context"

	"github.com/kailas-cloud/suntan/internal/db"
)

// Searcher runs ranked free-text queries against the index.
type Searcher interface {
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}
