package suntan

import (
	"maps"
	"time"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/usecase/reconcile"
)

// Stats summarises a migration run.
type Stats struct {
	Batches        int64
	DocsRead       int64
	DocsWritten    int64
	DocsWithErrors int64
	DocsSkipped    int64
	DocsRejected   int64
	// FieldErrors counts field coercion failures by reason
	// (missing, type_mismatch, parse_failure, unsupported).
	FieldErrors      map[string]int64
	SourceDocCount   uint64
	SourceCountKnown bool
	Committed        bool
	State            string
	Duration         time.Duration
}

// Query is the reconciliation smoke query. Empty Text skips it.
type Query struct {
	Text   string
	Fields []string
	Limit  int
}

// Hit is a ranked search result.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// SearchResult holds the hits of one query and the total match count.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// Warning is a reconciliation finding.
type Warning struct {
	Kind    string
	Message string
}

// Report is the outcome of Verify.
type Report struct {
	LiveDocCount uint64
	LiveKnown    bool
	QueryRan     bool
	QueryTotal   int
	Hits         []Hit
	Warnings     []Warning
}

// OK reports whether reconciliation raised no warnings.
func (r Report) OK() bool { return len(r.Warnings) == 0 }

func statsFromDomain(s migration.Stats) Stats {
	return Stats{
		Batches:          s.Batches,
		DocsRead:         s.DocsRead,
		DocsWritten:      s.DocsWritten,
		DocsWithErrors:   s.DocsWithErrors,
		DocsSkipped:      s.DocsSkipped,
		DocsRejected:     s.DocsRejected,
		FieldErrors:      maps.Clone(s.FieldErrors),
		SourceDocCount:   s.SourceDocCount,
		SourceCountKnown: s.SourceCountKnown,
		Committed:        s.Committed,
		State:            string(s.State),
		Duration:         s.Duration,
	}
}

func (s Stats) toDomain() migration.Stats {
	st := migration.NewStats()
	st.Batches = s.Batches
	st.DocsRead = s.DocsRead
	st.DocsWritten = s.DocsWritten
	st.DocsWithErrors = s.DocsWithErrors
	st.DocsSkipped = s.DocsSkipped
	st.DocsRejected = s.DocsRejected
	maps.Copy(st.FieldErrors, s.FieldErrors)
	st.SourceDocCount = s.SourceDocCount
	st.SourceCountKnown = s.SourceCountKnown
	st.Committed = s.Committed
	st.State = migration.State(s.State)
	st.Duration = s.Duration
	return st
}

func hitsFromDB(entries []db.SearchEntry) []Hit {
	hits := make([]Hit, len(entries))
	for i, e := range entries {
		hits[i] = Hit{ID: e.ID, Score: e.Score, Fields: e.Fields}
	}
	return hits
}

func reportFromDomain(r reconcile.Report) Report {
	out := Report{
		LiveDocCount: r.LiveDocCount,
		LiveKnown:    r.LiveKnown,
		QueryRan:     r.QueryRan,
		QueryTotal:   r.QueryTotal,
		Hits:         hitsFromDB(r.QueryHits),
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, Warning{Kind: string(w.Kind), Message: w.Message})
	}
	return out
}
