// Package sqlstore implements the index engine on a SQL database: SQLite with
// FTS5 or Postgres with tsvector columns. A writer is a single transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/suntan/internal/db"
)

// Compile-time check: Store implements db.Engine.
var _ db.Engine = (*Store)(nil)

// Store is a SQL-backed index.
type Store struct {
	db      *sql.DB
	def     *db.IndexDefinition
	dialect dialect
	tables  tables
}

// OpenSQLite opens (or creates) a SQLite database file holding the index.
func OpenSQLite(ctx context.Context, path string, def *db.IndexDefinition) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	// One connection keeps the writer transaction and readers consistent.
	conn.SetMaxOpenConns(1)
	return open(ctx, conn, sqlite{}, def, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
}

// OpenPostgres connects to Postgres through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string, def *db.IndexDefinition) (*Store, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("parse dsn: %w", err)}
	}
	return open(ctx, stdlib.OpenDB(*cfg), postgres{}, def)
}

func open(ctx context.Context, conn *sql.DB, d dialect, def *db.IndexDefinition, pragmas ...string) (*Store, error) {
	if err := def.Validate(); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if err := checkColumns(def); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	for _, p := range pragmas {
		_, _ = conn.ExecContext(ctx, p)
	}

	s := &Store{db: conn, def: def, dialect: d, tables: tablesFor(def.Name)}
	if err := s.checkExisting(ctx); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	for _, stmt := range d.ddl(s.tables, def) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, &db.Error{Op: db.OpCreateIndex, Err: fmt.Errorf("%s: %w", d.name(), err)}
		}
	}
	return s, nil
}

// checkExisting compares the columns of an existing docs table (and, on
// SQLite, the FTS table) with what def would create. CREATE ... IF NOT
// EXISTS would otherwise keep the old layout silently.
func (s *Store) checkExisting(ctx context.Context) error {
	have, ok, err := s.tableColumns(ctx, s.tables.docs)
	if err != nil || !ok {
		return err
	}
	if err := sameColumns(s.tables.docs, have, s.dialect.columns(s.def)); err != nil {
		return err
	}
	if _, isSQLite := s.dialect.(sqlite); !isSQLite {
		return nil
	}
	fts, ok, err := s.tableColumns(ctx, s.tables.fts)
	if err != nil {
		return err
	}
	switch {
	case !ok && len(s.def.TextFields()) > 0:
		return fmt.Errorf("%w: %s is missing", db.ErrSchemaMismatch, s.tables.fts)
	case ok:
		return sameColumns(s.tables.fts, fts, s.def.TextFields())
	}
	return nil
}

// tableColumns returns the column names of table, or ok=false when the
// table does not exist.
func (s *Store) tableColumns(ctx context.Context, table string) ([]string, bool, error) {
	var exists bool
	q := s.dialect.tableExists()
	if err := s.db.QueryRowContext(ctx, q, strings.Trim(table, `"`)).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("inspect %s: %w", table, err)
	}
	if !exists {
		return nil, false, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table+" WHERE 1 = 0")
	if err != nil {
		return nil, false, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return cols, true, nil
}

func sameColumns(table string, have, want []string) error {
	a, b := slices.Clone(have), slices.Clone(want)
	slices.Sort(a)
	slices.Sort(b)
	if slices.Equal(a, b) {
		return nil
	}
	return fmt.Errorf("%w: %s has columns %v, schema wants %v", db.ErrSchemaMismatch, table, have, want)
}

// Definition returns the index definition the store was opened with.
func (s *Store) Definition() *db.IndexDefinition { return s.def }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// DocCount returns the number of committed documents.
func (s *Store) DocCount(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.tables.docs).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return uint64(n), nil
}

// Search runs a ranked full-text query.
func (s *Store) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fields, err := q.ResolveFields(s.def)
	if err != nil {
		return nil, err
	}
	match, err := s.dialect.match(q.Query, fields)
	if err != nil {
		return nil, err
	}
	hitsSQL, totalSQL := s.dialect.search(s.tables, s.def, fields)

	var total int64
	if err := s.db.QueryRowContext(ctx, totalSQL, match).Scan(&total); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, hitsSQL, match, q.Limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer rows.Close()

	stored := s.def.StoredFields()
	entries := make([]db.SearchEntry, 0, q.Limit)
	for rows.Next() {
		var (
			id    string
			score float64
		)
		vals := make([]any, len(stored))
		dest := make([]any, 0, len(stored)+2)
		dest = append(dest, &id, &score)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}

		fields := make(map[string]string, len(stored))
		for i, name := range stored {
			if vals[i] == nil {
				continue
			}
			fields[name] = formatColumn(vals[i])
		}
		entries = append(entries, db.SearchEntry{ID: id, Score: score, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.dialect.name(), err)
	}
	return nil
}

func formatColumn(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
