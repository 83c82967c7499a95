// Package datadog sends migration metrics to a DogStatsD agent.
package datadog

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/kailas-cloud/suntan/internal/domain/migration"
)

// Config holds DogStatsD settings.
type Config struct {
	// Addr is the agent address, e.g. "127.0.0.1:8125" or "unix:///var/run/datadog/dsd.socket".
	Addr string
	// Namespace prefixes every metric name, e.g. "suntan.".
	Namespace string
	// Tags are applied to every metric, e.g. "env:prod".
	Tags []string
}

// client is the subset of *statsd.Client the recorder uses.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Incr(name string, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// Recorder forwards migration metrics as DogStatsD counts and timings.
// Send errors are dropped; metrics never fail a run.
type Recorder struct {
	client client
}

// New connects a DogStatsD client.
func New(cfg Config) (*Recorder, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: addr is required")
	}
	opts := []statsd.Option{statsd.WithoutTelemetry()}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Recorder{client: c}, nil
}

func (r *Recorder) ObserveBatch(records int, d time.Duration) {
	_ = r.client.Incr("migration.batches", nil, 1)
	_ = r.client.Timing("migration.batch.duration", d, nil, 1)
	_ = r.client.Gauge("migration.batch.size", float64(records), nil, 1)
}

func (r *Recorder) AddDocs(outcome migration.Outcome, n int) {
	_ = r.client.Count("migration.documents", int64(n), []string{"outcome:" + string(outcome)}, 1)
}

func (r *Recorder) AddFieldError(reason string) {
	_ = r.client.Incr("migration.field_errors", []string{"reason:" + reason}, 1)
}

func (r *Recorder) ObserveRun(state migration.State, d time.Duration) {
	tags := []string{"state:" + string(state)}
	_ = r.client.Incr("migration.runs", tags, 1)
	_ = r.client.Timing("migration.run.duration", d, tags, 1)
	_ = r.client.Flush()
}

// Close flushes buffered metrics and closes the client.
func (r *Recorder) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("datadog: close: %w", err)
	}
	return nil
}
