// Package health reports whether the target index and the migration source
// are reachable.
package health

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds a single component ping.
const DefaultTimeout = 2 * time.Second

// Status is the overall verdict of a Check.
type Status string

// Overall statuses.
const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the verdict for one component.
type CheckResult string

// Component verdicts.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used in Report.Checks.
const (
	ComponentIndex  = "index"
	ComponentSource = "source"
)

// Report aggregates the component verdicts.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name string
	p    Pinger
}

// Service pings the index and, when one is given, the source.
type Service struct {
	components []component
	timeout    time.Duration
}

// New creates a Service. A nil source is left out of every report.
func New(index, source Pinger) *Service {
	s := &Service{timeout: DefaultTimeout}
	s.components = append(s.components, component{ComponentIndex, index})
	if source != nil {
		s.components = append(s.components, component{ComponentSource, source})
	}
	return s
}

// WithTimeout sets the per-component ping deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check pings every component concurrently. Any failing ping degrades
// the report.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.components))

	var wg sync.WaitGroup
	for i, c := range s.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = CheckOK
			if err := c.p.Ping(pctx); err != nil {
				results[i] = CheckError
			}
		}()
	}
	wg.Wait()

	rep := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.components))}
	for i, c := range s.components {
		rep.Checks[c.name] = results[i]
		if results[i] != CheckOK {
			rep.Status = Degraded
		}
	}
	return rep
}
