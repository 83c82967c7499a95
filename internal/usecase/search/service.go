package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
)

// DefaultMaxLimit caps the number of hits a single query may request.
const DefaultMaxLimit = 100

// Service handles free-text search over the migrated index.
type Service struct {
	searcher Searcher
	maxLimit int
}

// New creates a search service.
func New(searcher Searcher) *Service {
	return &Service{searcher: searcher, maxLimit: DefaultMaxLimit}
}

// WithMaxLimit sets the hit cap. Non-positive values are ignored.
func (s *Service) WithMaxLimit(n int) *Service {
	if n > 0 {
		s.maxLimit = n
	}
	return s
}

// Search runs text over fields (all default fields when empty). A limit of
// zero selects the default; limits above the cap are clamped.
func (s *Service) Search(ctx context.Context, text string, fields []string, limit int) (*db.SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidQuery)
	}
	if limit == 0 {
		limit = db.DefaultSearchLimit
	}
	limit = min(limit, s.maxLimit)

	res, err := s.searcher.Search(ctx, &db.TextQuery{
		Query:  text,
		Fields: normalizeFields(fields),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// normalizeFields trims names, drops blanks and duplicates, keeps order.
func normalizeFields(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
