package bleve

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/document"
)

// Writer accumulates documents in a bleve batch and applies it once the
// buffered size passes the limit. bleve has no uncommitted state, so a
// flushed batch is visible immediately; Commit applies the remainder.
// A batch bleve refuses is dropped, never resubmitted.
type Writer struct {
	index   bleve.Index
	batch   *bleve.Batch
	ids     []string
	limit   int
	pending int
	closed  bool
}

// Writer opens a batch writer.
func (e *Engine) Writer(_ context.Context, bufferBytes int) (db.Writer, error) {
	if bufferBytes <= 0 {
		bufferBytes = db.DefaultWriterBuffer
	}
	return &Writer{index: e.index, batch: e.index.NewBatch(), limit: bufferBytes}, nil
}

// Add queues a document.
func (w *Writer) Add(_ context.Context, doc *document.Document) error {
	if w.closed {
		return &db.Error{Op: db.OpAdd, Err: db.ErrWriterClosed}
	}
	if doc.ID() == "" {
		return &db.Error{Op: db.OpAdd, Err: db.ErrMissingID}
	}
	if err := w.batch.Index(doc.ID(), toBleveDoc(doc)); err != nil {
		return &db.Error{Op: db.OpAdd, Err: fmt.Errorf("doc %s: %w", doc.ID(), err)}
	}
	w.ids = append(w.ids, doc.ID())
	w.pending += doc.Size()
	if w.pending >= w.limit {
		return w.flush()
	}
	return nil
}

// Commit applies all queued documents.
func (w *Writer) Commit(_ context.Context) error {
	if w.closed {
		return &db.Error{Op: db.OpCommit, Err: db.ErrWriterClosed}
	}
	if err := w.flush(); err != nil {
		return &db.Error{Op: db.OpCommit, Err: err}
	}
	return nil
}

// Close drops any queued documents.
func (w *Writer) Close() error {
	w.closed = true
	w.discard()
	return nil
}

func (w *Writer) flush() error {
	if w.batch.Size() == 0 {
		return nil
	}
	err := w.index.Batch(w.batch)
	ids := w.ids
	w.discard()
	if err != nil {
		return &db.Error{Op: db.OpFlush, Err: &db.FlushError{IDs: ids, Err: err}}
	}
	return nil
}

func (w *Writer) discard() {
	w.batch.Reset()
	w.ids = nil
	w.pending = 0
}

// toBleveDoc maps a document to the value shapes bleve indexes natively:
// strings for text and bytes, float64 for numerics, time.Time for dates.
func toBleveDoc(doc *document.Document) map[string]any {
	out := make(map[string]any, doc.Len())
	for _, e := range doc.Entries() {
		v := e.Value
		switch v.Kind() {
		case document.KindText, document.KindBytes:
			out[e.Field.Name()] = v.String()
		case document.KindU64, document.KindI64, document.KindF64:
			f, _ := v.Float()
			out[e.Field.Name()] = f
		case document.KindDate:
			out[e.Field.Name()] = v.Date()
		}
	}
	return out
}
