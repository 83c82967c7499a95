package db

import (
	"fmt"

	"github.com/kailas-cloud/suntan/internal/domain"
)

// DefaultSearchLimit bounds result sets when a query sets no limit.
const DefaultSearchLimit = 10

// TextQuery is the input for ranked free-text search.
type TextQuery struct {
	Query string
	// Fields restricts matching to these indexed text fields; empty means
	// the index's default fields.
	Fields []string
	Limit  int
}

// Validate checks the query and fills the default limit.
func (q *TextQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	return nil
}

// ResolveFields returns the fields a query should match, checked against def.
func (q *TextQuery) ResolveFields(def *IndexDefinition) ([]string, error) {
	if len(q.Fields) == 0 {
		if len(def.DefaultFields) == 0 {
			return nil, fmt.Errorf("%w: index has no searchable text fields", domain.ErrInvalidQuery)
		}
		return def.DefaultFields, nil
	}
	for _, name := range q.Fields {
		f, ok := def.Field(name)
		if !ok || f.Type != IndexFieldText || !f.Indexed {
			return nil, fmt.Errorf("%w: not an indexed text field: %s", domain.ErrInvalidQuery, name)
		}
	}
	return q.Fields, nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	ID     string
	Score  float64
	Fields map[string]string
}
