// Package reconcile checks a finished migration against its source and the
// committed index. Every finding is a warning for an operator to read;
// nothing here fails a run.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
)

// Kind classifies a reconciliation warning.
type Kind string

// Warning kinds.
const (
	SourceCountMismatch  Kind = "source_count_mismatch"
	SourceCountUnknown   Kind = "source_count_unknown"
	LiveCountMismatch    Kind = "live_count_mismatch"
	LiveCountUnavailable Kind = "live_count_unavailable"
	EmptyQueryResult     Kind = "empty_query_result"
	QueryFailed          Kind = "query_failed"
)

// Warning is one reconciliation finding.
type Warning struct {
	Kind    Kind
	Message string
}

func (w Warning) String() string { return string(w.Kind) + ": " + w.Message }

// Query is the smoke query run against the committed index. An empty Text
// skips the query check.
type Query struct {
	Text   string
	Fields []string
	Limit  int
}

// Report is the outcome of Verify.
type Report struct {
	DocsWritten    int64
	SourceDocCount uint64
	SourceKnown    bool
	LiveDocCount   uint64
	LiveKnown      bool
	QueryRan       bool
	QueryTotal     int
	QueryHits      []db.SearchEntry
	Warnings       []Warning
}

// OK reports whether the run reconciled without warnings.
func (r Report) OK() bool { return len(r.Warnings) == 0 }

// Has reports whether a warning of kind k was raised.
func (r Report) Has(k Kind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Service verifies migrations.
type Service struct {
	logger *zap.Logger
}

// New creates a reconciliation service.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Verify compares stats with the source count and the live index count,
// then runs q. It never returns an error.
func (s *Service) Verify(ctx context.Context, stats migration.Stats, reader IndexReader, q Query) Report {
	r := Report{
		DocsWritten:    stats.DocsWritten,
		SourceDocCount: stats.SourceDocCount,
		SourceKnown:    stats.SourceCountKnown,
	}

	written := uint64(max(stats.DocsWritten, 0))

	if !stats.SourceCountKnown {
		r.warn(SourceCountUnknown, "source document count was unavailable; source comparison skipped")
	} else if stats.SourceDocCount != written {
		r.warn(SourceCountMismatch, fmt.Sprintf(
			"source reported %d documents, %d were written (%d skipped, %d rejected)",
			stats.SourceDocCount, written, stats.DocsSkipped, stats.DocsRejected))
	}

	live, err := reader.DocCount(ctx)
	switch {
	case err != nil:
		r.warn(LiveCountUnavailable, "index document count failed: "+err.Error())
	default:
		r.LiveDocCount, r.LiveKnown = live, true
		if live != written {
			r.warn(LiveCountMismatch, fmt.Sprintf(
				"index holds %d documents, %d were written; the run may have appended to an existing index",
				live, written))
		}
	}

	if text := strings.TrimSpace(q.Text); text != "" {
		r.QueryRan = true
		res, err := reader.Search(ctx, &db.TextQuery{Query: text, Fields: q.Fields, Limit: q.Limit})
		switch {
		case err != nil:
			r.warn(QueryFailed, fmt.Sprintf("query %q failed: %v", text, err))
		case res == nil || len(res.Entries) == 0:
			r.warn(EmptyQueryResult, fmt.Sprintf("query %q returned no documents", text))
		default:
			r.QueryTotal = res.Total
			r.QueryHits = res.Entries
		}
	}

	for _, w := range r.Warnings {
		s.logger.Warn("Reconciliation warning", zap.String("kind", string(w.Kind)), zap.String("detail", w.Message))
	}
	s.logger.Info("Reconciliation finished",
		zap.Bool("ok", r.OK()),
		zap.Int("warnings", len(r.Warnings)),
		zap.Uint64("live_doc_count", r.LiveDocCount),
		zap.Int("query_total", r.QueryTotal),
	)
	return r
}

func (r *Report) warn(k Kind, msg string) {
	r.Warnings = append(r.Warnings, Warning{Kind: k, Message: msg})
}
