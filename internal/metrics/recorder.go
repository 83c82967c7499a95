package metrics

import (
	"time"

	"github.com/kailas-cloud/suntan/internal/domain/migration"
)

// Recorder receives migration run metrics. Migration, the datadog
// Recorder and Multi implement it.
type Recorder interface {
	ObserveBatch(records int, d time.Duration)
	AddDocs(outcome migration.Outcome, n int)
	AddFieldError(reason string)
	ObserveRun(state migration.State, d time.Duration)
}

// Multi fans every observation out to rs. Nil entries are dropped.
func Multi(rs ...Recorder) Recorder {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []Recorder

func (m multi) ObserveBatch(records int, d time.Duration) {
	for _, r := range m {
		r.ObserveBatch(records, d)
	}
}

func (m multi) AddDocs(outcome migration.Outcome, n int) {
	for _, r := range m {
		r.AddDocs(outcome, n)
	}
}

func (m multi) AddFieldError(reason string) {
	for _, r := range m {
		r.AddFieldError(reason)
	}
}

func (m multi) ObserveRun(state migration.State, d time.Duration) {
	for _, r := range m {
		r.ObserveRun(state, d)
	}
}
