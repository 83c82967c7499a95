package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/document"
)

// Writer buffers HSET commands and sends them in one DoMulti round-trip
// once the buffered payload passes the limit. Flushed hashes are indexed
// immediately, so Close cannot undo them.
type Writer struct {
	store   *Store
	limit   int
	pending []rueidis.Completed
	ids     []string
	size    int
	closed  bool
}

// Writer opens a buffered writer.
func (s *Store) Writer(_ context.Context, bufferBytes int) (db.Writer, error) {
	if bufferBytes <= 0 {
		bufferBytes = db.DefaultWriterBuffer
	}
	return &Writer{store: s, limit: bufferBytes}, nil
}

// Add queues an HSET of the document's fields.
func (w *Writer) Add(ctx context.Context, doc *document.Document) error {
	if w.closed {
		return &db.Error{Op: db.OpAdd, Err: db.ErrWriterClosed}
	}
	if doc.ID() == "" {
		return &db.Error{Op: db.OpAdd, Err: db.ErrMissingID}
	}
	// The id field keeps a document with no schema fields as a hash, so
	// the FT index still counts it.
	cmd := w.store.client.B().Hset().Key(w.store.key(doc.ID())).FieldValue().
		FieldValue(idField, doc.ID())
	for _, e := range doc.Entries() {
		cmd = cmd.FieldValue(e.Field.Name(), hashValue(e.Value))
	}
	w.pending = append(w.pending, cmd.Build())
	w.ids = append(w.ids, doc.ID())
	w.size += doc.Size()

	if w.size >= w.limit {
		return w.flush(ctx)
	}
	return nil
}

// Commit sends all queued commands.
func (w *Writer) Commit(ctx context.Context) error {
	if w.closed {
		return &db.Error{Op: db.OpCommit, Err: db.ErrWriterClosed}
	}
	if err := w.flush(ctx); err != nil {
		return &db.Error{Op: db.OpCommit, Err: err}
	}
	return nil
}

// Close drops queued commands.
func (w *Writer) Close() error {
	w.closed = true
	w.pending = nil
	w.ids = nil
	return nil
}

func (w *Writer) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	results := w.store.client.DoMulti(ctx, w.pending...)
	ids := w.ids
	w.pending, w.ids, w.size = nil, nil, 0

	var (
		lost  []string
		first error
	)
	for i, res := range results {
		if err := res.Error(); err != nil {
			lost = append(lost, ids[i])
			if first == nil {
				first = fmt.Errorf("doc %s: %w", ids[i], err)
			}
		}
	}
	if first != nil {
		return &db.Error{Op: db.OpFlush, Err: &db.FlushError{IDs: lost, Err: first}}
	}
	return nil
}

// idField holds the document id in every hash. It is not part of the FT
// schema and is never returned by Search.
const idField = "__id"

// hashValue encodes a value as a hash field. Dates become epoch
// milliseconds so NUMERIC range queries work on them.
func hashValue(v document.Value) string {
	if v.Kind() == document.KindDate {
		return strconv.FormatInt(v.Date().UnixMilli(), 10)
	}
	return v.String()
}
