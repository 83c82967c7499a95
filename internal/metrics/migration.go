package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/usecase/coerce"
)

// Migration holds the migration run collectors.
type Migration struct {
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	docs          *prometheus.CounterVec
	fieldErrors   *prometheus.CounterVec
	runDuration   prometheus.Gauge
	runState      *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

var _ Recorder = (*Migration)(nil)

// NewMigration creates the migration collectors and registers them on reg.
func NewMigration(reg prometheus.Registerer) (*Migration, error) {
	m := &Migration{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migration_batches_total",
			Help:      "Source batches processed",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "migration_batch_duration_seconds",
			Help:      "Time to read, assemble and write one batch",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		docs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migration_documents_total",
			Help:      "Documents by outcome",
		}, []string{"outcome"}),
		fieldErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migration_field_errors_total",
			Help:      "Field coercion errors by reason",
		}, []string{"reason"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "migration_run_duration_seconds",
			Help:      "Duration of the last migration run",
		}),
		runState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "migration_run_state",
			Help:      "1 for the final state of the last run, 0 otherwise",
		}, []string{"state"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "migration_last_success_timestamp_seconds",
			Help:      "Unix time of the last committed run",
		}),
	}

	// Pre-create label values so every series is exported from the start.
	for _, o := range migration.Outcomes {
		m.docs.WithLabelValues(string(o))
	}
	for _, r := range coerce.Reasons {
		m.fieldErrors.WithLabelValues(string(r))
	}

	err := registerAll(reg, m.batches, m.batchDuration, m.docs, m.fieldErrors,
		m.runDuration, m.runState, m.lastSuccess)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Migration) ObserveBatch(_ int, d time.Duration) {
	m.batches.Inc()
	m.batchDuration.Observe(d.Seconds())
}

func (m *Migration) AddDocs(outcome migration.Outcome, n int) {
	m.docs.WithLabelValues(string(outcome)).Add(float64(n))
}

func (m *Migration) AddFieldError(reason string) {
	m.fieldErrors.WithLabelValues(reason).Inc()
}

func (m *Migration) ObserveRun(state migration.State, d time.Duration) {
	m.runDuration.Set(d.Seconds())
	m.runState.Reset()
	m.runState.WithLabelValues(string(state)).Set(1)
	if state == migration.StateDone {
		m.lastSuccess.SetToCurrentTime()
	}
}
