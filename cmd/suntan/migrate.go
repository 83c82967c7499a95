package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/metrics"
	"github.com/kailas-cloud/suntan/internal/metrics/datadog"
	"github.com/kailas-cloud/suntan/internal/usecase/migrate"
	"github.com/kailas-cloud/suntan/internal/usecase/reconcile"
)

// sourceFlags override the source and index sections of the config.
type sourceFlags struct {
	source      string
	kind        string
	schema      string
	index       string
	driver      string
	batchSize   int
	allowAppend bool
	query       string
	fields      []string
	limit       int
}

func (f *sourceFlags) register(cmd *cobra.Command, withMigrate bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.source, "source", "", "source path (file or directory)")
	fs.StringVar(&f.kind, "source-kind", "", "jsonl, parquet or elastic")
	fs.StringVar(&f.schema, "schema", "", "schema description file")
	fs.StringVar(&f.index, "index", "", "index path (bleve, sqlite)")
	fs.StringVar(&f.driver, "driver", "", "bleve, sqlite, postgres or redis")
	fs.StringVar(&f.query, "query", "", "smoke query run after counting")
	fs.StringSliceVar(&f.fields, "fields", nil, "fields searched by the smoke query")
	fs.IntVar(&f.limit, "limit", 0, "smoke query hit limit")
	if withMigrate {
		fs.IntVar(&f.batchSize, "batch-size", 0, "records per source batch")
		fs.BoolVar(&f.allowAppend, "allow-append", false, "write into a non-empty index")
	}
}

func (f *sourceFlags) apply(cmd *cobra.Command, a *app) {
	fs := cmd.Flags()
	c := &a.cfg
	if fs.Changed("source") {
		c.Source.Path = f.source
	}
	if fs.Changed("source-kind") {
		c.Source.Kind = f.kind
	}
	if fs.Changed("schema") {
		c.Schema.Path = f.schema
	}
	if fs.Changed("index") {
		c.Index.Path = f.index
	}
	if fs.Changed("driver") {
		c.Index.Driver = f.driver
	}
	if fs.Changed("batch-size") {
		c.Source.BatchSize = f.batchSize
	}
	if fs.Changed("allow-append") {
		c.Index.AllowAppend = f.allowAppend
	}
	if fs.Changed("query") {
		c.Verify.Query = f.query
	}
	if fs.Changed("fields") {
		c.Verify.Fields = f.fields
	}
	if fs.Changed("limit") {
		c.Verify.Limit = f.limit
	}
}

func (a *app) newMigrateCmd() *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every source record into the index, then verify it",
		Long: `Migrate reads the source in batches, assembles one typed document per
record and writes it to the index, committing once at the end. Per-document
problems are counted and sampled in the log; only run-level failures exit
non-zero. Reconciliation runs after a committed migration and only warns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runMigrate(cmd.Context(), cmd.OutOrStdout())
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *app) runMigrate(ctx context.Context, out io.Writer) error {
	sch, err := a.loadSchema()
	if err != nil {
		return err
	}
	src, err := a.openSource()
	if err != nil {
		return err
	}
	engine, err := a.openEngine(ctx, sch)
	if err != nil {
		return err
	}
	defer a.closeEngine(engine)

	reg := prometheus.NewRegistry()
	rec, closeRec, err := a.recorder(reg)
	if err != nil {
		return err
	}
	defer closeRec()

	svc := migrate.New(a.logger).
		WithRecorder(rec).
		WithAllowAppend(a.cfg.Index.AllowAppend).
		WithWriterBuffer(a.cfg.Index.WriterBufferBytes)

	stats, runErr := svc.Run(ctx, sch, src, engine)
	a.push(ctx, reg)
	printStats(out, stats)
	if runErr != nil {
		if migrate.IsFatal(runErr) {
			return fmt.Errorf("migration aborted, nothing committed: %w", runErr)
		}
		return fmt.Errorf("migration failed: %w", runErr)
	}

	report := reconcile.New(a.logger).Verify(ctx, stats, engine, a.query())
	printReport(out, report)
	return nil
}

// recorder builds the Prometheus recorder plus DogStatsD when configured.
func (a *app) recorder(reg prometheus.Registerer) (metrics.Recorder, func(), error) {
	prom, err := metrics.NewMigration(reg)
	if err != nil {
		return nil, nil, err
	}
	mc := a.cfg.Metrics
	if mc.StatsdAddr == "" {
		return prom, func() {}, nil
	}

	dd, err := datadog.New(datadog.Config{Addr: mc.StatsdAddr, Namespace: mc.Namespace, Tags: mc.Tags})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := dd.Close(); err != nil {
			a.logger.Warn("DogStatsD client close failed", zap.Error(err))
		}
	}
	return metrics.Multi(prom, dd), closeFn, nil
}

// push sends the run metrics to the Pushgateway when one is configured.
func (a *app) push(ctx context.Context, g prometheus.Gatherer) {
	mc := a.cfg.Metrics
	if mc.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, mc.PushgatewayURL, mc.Job, g); err != nil {
		a.logger.Warn("Pushgateway push failed", zap.String("url", mc.PushgatewayURL), zap.Error(err))
		return
	}
	a.logger.Debug("Metrics pushed", zap.String("job", mc.Job))
}

func (a *app) query() reconcile.Query {
	v := a.cfg.Verify
	return reconcile.Query{Text: v.Query, Fields: v.Fields, Limit: v.Limit}
}

func (a *app) newVerifyCmd() *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the index with the source and run the smoke query",
		Long: `Verify reconciles an index built by an earlier run: the live count is
compared with the source count and the configured smoke query is run.
Warnings are reported but never change the exit status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runVerify(cmd.Context(), cmd.OutOrStdout())
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *app) runVerify(ctx context.Context, out io.Writer) error {
	sch, err := a.loadSchema()
	if err != nil {
		return err
	}
	engine, err := a.openEngine(ctx, sch)
	if err != nil {
		return err
	}
	defer a.closeEngine(engine)

	stats, err := a.observedStats(ctx, engine)
	if err != nil {
		return err
	}
	report := reconcile.New(a.logger).Verify(ctx, stats, engine, a.query())
	printReport(out, report)
	return nil
}

// observedStats stands in for the stats of a finished run: the live count
// is taken as the number written, so only the source comparison and the
// query can warn.
func (a *app) observedStats(ctx context.Context, engine db.Counter) (migration.Stats, error) {
	stats := migration.NewStats()
	live, err := engine.DocCount(ctx)
	if err != nil {
		return stats, fmt.Errorf("count index documents: %w", err)
	}
	stats.DocsWritten = int64(live) //nolint:gosec // index counts fit in int64
	stats.State = migration.StateDone
	stats.Committed = true

	src, err := a.openSource()
	if err != nil {
		a.logger.Warn("Source unavailable for verification", zap.Error(err))
		return stats, nil
	}
	if n, err := src.DocCount(ctx); err != nil {
		a.logger.Warn("Source document count unavailable", zap.Error(err))
	} else {
		stats.SourceDocCount, stats.SourceCountKnown = n, true
	}
	return stats, nil
}

func printStats(out io.Writer, st migration.Stats) {
	fmt.Fprintf(out, "state=%s committed=%t batches=%d read=%d written=%d with_errors=%d skipped=%d rejected=%d "+
		"failed=%d field_errors=%d duration=%s\n",
		st.State, st.Committed, st.Batches, st.DocsRead, st.DocsWritten,
		st.DocsWithErrors, st.DocsSkipped, st.DocsRejected,
		st.DocsFailed(), st.TotalFieldErrors(), st.Duration.Round(time.Millisecond))
	for reason, n := range st.FieldErrors {
		if n > 0 {
			fmt.Fprintf(out, "  field_errors[%s]=%d\n", reason, n)
		}
	}
}

func printReport(out io.Writer, r reconcile.Report) {
	if r.LiveKnown {
		fmt.Fprintf(out, "live documents: %d\n", r.LiveDocCount)
	}
	if r.QueryRan {
		fmt.Fprintf(out, "smoke query: %d total, %d shown\n", r.QueryTotal, len(r.QueryHits))
		for _, h := range r.QueryHits {
			fmt.Fprintf(out, "  %8.4f  %s\n", h.Score, h.ID)
		}
	}
	if r.OK() {
		fmt.Fprintln(out, "reconciliation: ok")
		return
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}
