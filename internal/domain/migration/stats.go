package migration

import "time"

// State is a step of the migration run state machine.
type State string

// Run states. Fatal errors move any state to Failed.
const (
	StateIdle       State = "idle"
	StateReading    State = "reading"
	StateAssembling State = "assembling"
	StateWriting    State = "writing"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)


// Stats are the counters of one migration run.
type Stats struct {
	Batches        int64
	DocsRead       int64
	DocsWritten    int64
	DocsWithErrors int64
	DocsSkipped    int64
	DocsRejected   int64

	// FieldErrors counts coercion errors by reason.
	FieldErrors map[string]int64

	SourceDocCount   uint64
	SourceCountKnown bool

	Committed bool
	State     State
	Duration  time.Duration
}

// NewStats returns zeroed counters in the idle state.
func NewStats() Stats {
	return Stats{FieldErrors: make(map[string]int64), State: StateIdle}
}

// DocsFailed counts records that never reached the index.
func (s Stats) DocsFailed() int64 { return s.DocsSkipped + s.DocsRejected }

// TotalFieldErrors sums FieldErrors.
func (s Stats) TotalFieldErrors() int64 {
	var n int64
	for _, c := range s.FieldErrors {
		n += c
	}
	return n
}

// Outcome labels a document counter, for metrics.
type Outcome string

// Document outcomes.
const (
	OutcomeRead       Outcome = "read"
	OutcomeWritten    Outcome = "written"
	OutcomeWithErrors Outcome = "with_errors"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeRejected   Outcome = "rejected"
)

// Outcomes lists every outcome, for metrics pre-registration.
var Outcomes = []Outcome{OutcomeRead, OutcomeWritten, OutcomeWithErrors, OutcomeSkipped, OutcomeRejected}
