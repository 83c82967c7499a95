package bleve

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/suntan/internal/db"
)

// Search runs a disjunction of match queries, one per target field.
func (e *Engine) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fields, err := q.ResolveFields(e.def)
	if err != nil {
		return nil, err
	}

	matches := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(q.Query)
		mq.SetField(f)
		matches = append(matches, mq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(matches...), q.Limit, 0, false)
	req.Fields = e.def.StoredFields()

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		fieldsOut := make(map[string]string, len(hit.Fields))
		for k, v := range hit.Fields {
			fieldsOut[k] = formatStored(v)
		}
		entries = append(entries, db.SearchEntry{
			ID:     hit.ID,
			Score:  hit.Score,
			Fields: fieldsOut,
		})
	}

	return &db.SearchResult{Total: int(res.Total), Entries: entries}, nil
}

func formatStored(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
