package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/document"
)

// Writer stages documents in one transaction. Nothing is visible to readers
// until Commit; Close rolls back whatever was not committed.
type Writer struct {
	store  *Store
	tx     *sql.Tx
	upsert *sql.Stmt
	// ftsDelete and ftsInsert are nil when the index has no text fields or
	// the dialect keeps its vector inline.
	ftsDelete *sql.Stmt
	ftsInsert *sql.Stmt
	closed    bool
}

// Writer begins a transaction. The buffer size is ignored: the database
// spills the transaction to disk on its own.
func (s *Store) Writer(ctx context.Context, _ int) (db.Writer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	w := &Writer{store: s, tx: tx}

	if w.upsert, err = tx.PrepareContext(ctx, s.dialect.upsert(s.tables, s.def)); err != nil {
		_ = tx.Rollback()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("prepare upsert: %w", err)}
	}

	if _, ok := s.dialect.(sqlite); ok && len(s.def.TextFields()) > 0 {
		text := s.def.TextFields()
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(text)+1), ", ")
		if w.ftsDelete, err = tx.PrepareContext(ctx,
			"DELETE FROM "+s.tables.fts+" WHERE rowid = ?"); err != nil {
			_ = tx.Rollback()
			return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("prepare fts delete: %w", err)}
		}
		if w.ftsInsert, err = tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (rowid, %s) VALUES (%s)",
			s.tables.fts, strings.Join(text, ", "), marks)); err != nil {
			_ = tx.Rollback()
			return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("prepare fts insert: %w", err)}
		}
	}
	return w, nil
}

// Add upserts a document by id.
func (w *Writer) Add(ctx context.Context, doc *document.Document) error {
	if w.closed {
		return &db.Error{Op: db.OpAdd, Err: db.ErrWriterClosed}
	}
	if doc.ID() == "" {
		return &db.Error{Op: db.OpAdd, Err: db.ErrMissingID}
	}

	def := w.store.def
	args := make([]any, 0, len(def.Fields)+1)
	args = append(args, doc.ID())
	for _, f := range def.Fields {
		v, ok := doc.Get(f.Name)
		if !ok {
			args = append(args, nil)
			continue
		}
		args = append(args, columnValue(v, w.store.dialect.dateArgs()))
	}

	if w.ftsInsert == nil {
		if _, err := w.upsert.ExecContext(ctx, args...); err != nil {
			return &db.Error{Op: db.OpAdd, Err: fmt.Errorf("doc %s: %w", doc.ID(), err)}
		}
		return nil
	}

	var rid int64
	if err := w.upsert.QueryRowContext(ctx, args...).Scan(&rid); err != nil {
		return &db.Error{Op: db.OpAdd, Err: fmt.Errorf("doc %s: %w", doc.ID(), err)}
	}
	if _, err := w.ftsDelete.ExecContext(ctx, rid); err != nil {
		return &db.Error{Op: db.OpAdd, Err: fmt.Errorf("doc %s: fts: %w", doc.ID(), err)}
	}
	ftsArgs := []any{rid}
	for _, name := range def.TextFields() {
		if v, ok := doc.Get(name); ok {
			ftsArgs = append(ftsArgs, v.String())
		} else {
			ftsArgs = append(ftsArgs, nil)
		}
	}
	if _, err := w.ftsInsert.ExecContext(ctx, ftsArgs...); err != nil {
		return &db.Error{Op: db.OpAdd, Err: fmt.Errorf("doc %s: fts: %w", doc.ID(), err)}
	}
	return nil
}

// Commit commits the transaction. The writer cannot be reused afterwards.
func (w *Writer) Commit(_ context.Context) error {
	if w.closed {
		return &db.Error{Op: db.OpCommit, Err: db.ErrWriterClosed}
	}
	w.closed = true
	if err := w.tx.Commit(); err != nil {
		return &db.Error{Op: db.OpCommit, Err: err}
	}
	return nil
}

// Close rolls back an uncommitted transaction.
func (w *Writer) Close() error {
	w.closed = true
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// columnValue converts a value to a driver argument. Unsigned values past
// the int64 range are passed as decimal strings for the NUMERIC column.
func columnValue(v document.Value, nativeDates bool) any {
	switch v.Kind() {
	case document.KindText:
		return v.Text()
	case document.KindBytes:
		return v.Bytes()
	case document.KindU64:
		if v.U64() > math.MaxInt64 {
			return v.String()
		}
		return int64(v.U64())
	case document.KindI64:
		return v.I64()
	case document.KindF64:
		return v.F64()
	case document.KindDate:
		if nativeDates {
			return v.Date()
		}
		return v.Date().UTC().Format(time.RFC3339Nano)
	default:
		return nil
	}
}
