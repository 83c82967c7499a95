// Package migrate drives one migration run: read batches from a source,
// assemble typed documents, write them to the index and commit once.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/domain/schema"
	"github.com/kailas-cloud/suntan/internal/usecase/assemble"
)

// DefaultErrorSamples bounds how many per-document problems are logged.
const DefaultErrorSamples = 20

// Service runs migrations. A Service holds no per-run state and may be
// reused, but runs must not target the same index concurrently.
type Service struct {
	logger       *zap.Logger
	rec          Recorder
	newID        func() string
	allowAppend  bool
	bufferBytes  int
	errorSamples int
}

// New creates a migration service.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:       logger,
		rec:          nopRecorder{},
		newID:        uuid.NewString,
		bufferBytes:  db.DefaultWriterBuffer,
		errorSamples: DefaultErrorSamples,
	}
}

// WithRecorder sets the metrics sink.
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.rec = r
	}
	return s
}

// WithIDFunc sets the id generator for documents without an id field.
func (s *Service) WithIDFunc(f func() string) *Service {
	if f != nil {
		s.newID = f
	}
	return s
}

// WithAllowAppend permits writing into a target that already holds documents.
func (s *Service) WithAllowAppend(allow bool) *Service {
	s.allowAppend = allow
	return s
}

// WithWriterBuffer sets the writer buffer size in bytes.
func (s *Service) WithWriterBuffer(n int) *Service {
	if n > 0 {
		s.bufferBytes = n
	}
	return s
}

// WithErrorSamples sets how many per-document problems are logged.
func (s *Service) WithErrorSamples(n int) *Service {
	if n >= 0 {
		s.errorSamples = n
	}
	return s
}

// run carries the state of a single Run call.
type run struct {
	*Service
	stats   migration.Stats
	samples int
}

// Run migrates every record of src into target. Per-document problems are
// counted in the returned stats; only run-level failures return an error,
// in which case stats.State is failed and nothing is committed.
func (s *Service) Run(ctx context.Context, sch *schema.Schema, src Source, target Target) (migration.Stats, error) {
	r := &run{Service: s, stats: migration.NewStats()}
	start := time.Now()

	err := r.execute(ctx, sch, src, target)

	r.stats.Duration = time.Since(start)
	if err != nil {
		r.stats.State = migration.StateFailed
		s.logger.Error("Migration failed",
			zap.String("state", string(migration.StateFailed)),
			zap.Int64("docs_written", r.stats.DocsWritten),
			zap.Error(err),
		)
	}
	s.rec.ObserveRun(r.stats.State, r.stats.Duration)
	r.logSummary()
	return r.stats, err
}

func (r *run) execute(ctx context.Context, sch *schema.Schema, src Source, target Target) error {
	if n, err := src.DocCount(ctx); err != nil {
		r.logger.Warn("Source document count unavailable", zap.Error(err))
	} else {
		r.stats.SourceDocCount = n
		r.stats.SourceCountKnown = true
	}

	if !r.allowAppend && sch.IDField() == "" {
		live, err := target.DocCount(ctx)
		if err != nil {
			return fmt.Errorf("count target documents: %w", err)
		}
		if live > 0 {
			return fmt.Errorf("%w: %d documents present", domain.ErrTargetNotEmpty, live)
		}
	}

	w, err := target.Writer(ctx, r.bufferBytes)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriterOpen, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			r.logger.Warn("Index writer close failed", zap.Error(cerr))
		}
	}()

	it, err := src.Batches(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			r.logger.Warn("Source iterator close failed", zap.Error(cerr))
		}
	}()

	for {
		r.stats.State = migration.StateReading
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
		}
		if !it.HasNext() {
			break
		}

		batchStart := time.Now()
		raws, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("%w: batch %d: %w", domain.ErrSourceRead, r.stats.Batches+1, err)
		}
		r.stats.Batches++
		if len(raws) == 0 {
			continue
		}
		r.stats.DocsRead += int64(len(raws))
		r.rec.AddDocs(migration.OutcomeRead, len(raws))

		r.stats.State = migration.StateAssembling
		docs := r.assembleBatch(sch, raws)

		r.stats.State = migration.StateWriting
		if err := r.writeBatch(ctx, w, docs); err != nil {
			return err
		}

		r.rec.ObserveBatch(len(raws), time.Since(batchStart))
	}

	r.stats.State = migration.StateCommitting
	if err := w.Commit(ctx); err != nil {
		r.unwrite(db.LostIDs(err), "")
		return fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}
	r.stats.Committed = true
	r.stats.State = migration.StateDone
	return nil
}

func (r *run) assembleBatch(sch *schema.Schema, raws []document.Raw) []*document.Document {
	docs := make([]*document.Document, 0, len(raws))
	for _, raw := range raws {
		rec, err := document.ParseRecord(raw)
		if err != nil {
			r.stats.DocsSkipped++
			r.rec.AddDocs(migration.OutcomeSkipped, 1)
			r.sample("Skipping malformed record", zap.Int64("batch", r.stats.Batches), zap.Error(err))
			continue
		}

		doc, errs := assemble.Assemble(sch, rec)
		if len(errs) > 0 {
			r.stats.DocsWithErrors++
			r.rec.AddDocs(migration.OutcomeWithErrors, 1)
			for _, e := range errs {
				r.stats.FieldErrors[string(e.Reason)]++
				r.rec.AddFieldError(string(e.Reason))
			}
			r.sample("Document assembled with field errors",
				zap.Int64("batch", r.stats.Batches),
				zap.Int("field_errors", len(errs)),
				zap.Errors("errors", coerceErrors(errs)),
			)
		}
		if doc.ID() == "" {
			doc.SetID(r.newID())
		}
		docs = append(docs, doc)
	}
	return docs
}

// writeBatch adds docs to the writer. A refused document is counted as
// rejected and the run goes on. A failed flush of the writer's buffer ends
// the run: the documents it held were counted as written and never
// reached the index.
func (r *run) writeBatch(ctx context.Context, w db.Writer, docs []*document.Document) error {
	for _, doc := range docs {
		err := w.Add(ctx, doc)
		if errors.Is(err, db.ErrFlushFailed) {
			r.unwrite(db.LostIDs(err), doc.ID())
			return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
		}
		if err != nil {
			r.stats.DocsRejected++
			r.rec.AddDocs(migration.OutcomeRejected, 1)
			r.sample("Index rejected document", zap.String("doc_id", doc.ID()), zap.Error(err))
			continue
		}
		r.stats.DocsWritten++
		r.rec.AddDocs(migration.OutcomeWritten, 1)
	}
	return nil
}

// unwrite moves documents a failed flush dropped from written to rejected.
// current is the document being added when the flush ran; it was never
// counted as written.
func (r *run) unwrite(lost []string, current string) {
	var counted int64
	for _, id := range lost {
		if id != current {
			counted++
		}
	}
	r.stats.DocsWritten -= counted
	r.stats.DocsRejected += int64(len(lost))
	r.rec.AddDocs(migration.OutcomeRejected, len(lost))
	if len(lost) > 0 {
		r.logger.Error("Index dropped buffered documents",
			zap.Int("lost", len(lost)),
			zap.Strings("sample_ids", lost[:min(len(lost), r.errorSamples)]),
		)
	}
}

// sample logs a per-document problem until the sample budget is spent.
func (r *run) sample(msg string, fields ...zap.Field) {
	r.samples++
	switch {
	case r.samples <= r.errorSamples:
		r.logger.Warn(msg, fields...)
	case r.samples == r.errorSamples+1:
		r.logger.Warn("Further document problems are counted but not logged",
			zap.Int("sample_limit", r.errorSamples))
	}
}

func (r *run) logSummary() {
	st := r.stats
	fields := []zap.Field{
		zap.String("state", string(st.State)),
		zap.Bool("committed", st.Committed),
		zap.Int64("batches", st.Batches),
		zap.Int64("docs_read", st.DocsRead),
		zap.Int64("docs_written", st.DocsWritten),
		zap.Int64("docs_with_errors", st.DocsWithErrors),
		zap.Int64("docs_skipped", st.DocsSkipped),
		zap.Int64("docs_rejected", st.DocsRejected),
		zap.Any("field_errors", st.FieldErrors),
		zap.Duration("duration", st.Duration),
	}
	if st.SourceCountKnown {
		fields = append(fields, zap.Uint64("source_doc_count", st.SourceDocCount))
	}
	r.logger.Info("migration_summary", fields...)
}

func coerceErrors[E error](errs []E) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// IsFatal reports whether err ended a run, as opposed to a per-document
// problem. It recognises every run-level sentinel.
func IsFatal(err error) bool {
	for _, target := range []error{
		domain.ErrTargetNotEmpty, domain.ErrWriterOpen, domain.ErrSourceUnavailable,
		domain.ErrSourceRead, domain.ErrWriteFailed, domain.ErrCommitFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
