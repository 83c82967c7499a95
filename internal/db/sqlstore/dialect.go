package sqlstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
)

var columnRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect isolates the statements that differ between SQLite and Postgres.
type dialect interface {
	name() string
	placeholder(i int) string
	ddl(t tables, def *db.IndexDefinition) []string
	// columns lists the docs table columns ddl creates for def.
	columns(def *db.IndexDefinition) []string
	upsert(t tables, def *db.IndexDefinition) string
	// search returns the hit query (args: match, limit) and the total
	// query (args: match).
	search(t tables, def *db.IndexDefinition, fields []string) (hits, total string)
	// match converts free text into the dialect's match argument.
	match(query string, fields []string) (string, error)
	dateArgs() bool
	// tableExists is a query (arg: unquoted table name) scanning one bool.
	tableExists() string
}

// tables holds the quoted table names derived from an index name.
type tables struct {
	docs string
	fts  string
}

func tablesFor(index string) tables {
	base := strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, index)
	return tables{docs: quote(base + "_docs"), fts: quote(base + "_fts")}
}

func quote(ident string) string { return `"` + ident + `"` }

// checkColumns rejects field names that cannot be used as bare SQL columns.
func checkColumns(def *db.IndexDefinition) error {
	for _, f := range def.Fields {
		if !columnRe.MatchString(f.Name) {
			return fmt.Errorf("field %q is not a valid sql column name", f.Name)
		}
		switch f.Name {
		case "id", "rid", "tsv", "rank":
			return fmt.Errorf("field %q collides with a reserved column", f.Name)
		}
	}
	return nil
}

func fieldNames(def *db.IndexDefinition) []string {
	names := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		names = append(names, f.Name)
	}
	return names
}

func columnList(def *db.IndexDefinition, prefix string) string {
	cols := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		cols = append(cols, prefix+quote(f.Name))
	}
	return strings.Join(cols, ", ")
}

func storedList(def *db.IndexDefinition, prefix string) string {
	var cols []string
	for _, name := range def.StoredFields() {
		cols = append(cols, prefix+quote(name))
	}
	if len(cols) == 0 {
		return ""
	}
	return ", " + strings.Join(cols, ", ")
}

// tokens splits free text into quoted terms.
func tokens(query string) []string {
	fields := strings.Fields(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return out
}

// --- SQLite ---

type sqlite struct{}

func (sqlite) name() string           { return "sqlite" }
func (sqlite) placeholder(int) string { return "?" }
func (sqlite) dateArgs() bool         { return false }

func (sqlite) tableExists() string {
	return "SELECT COUNT(*) > 0 FROM sqlite_master WHERE name = ?"
}

func (sqlite) ddl(t tables, def *db.IndexDefinition) []string {
	cols := []string{"rid INTEGER PRIMARY KEY", "id TEXT NOT NULL UNIQUE"}
	for _, f := range def.Fields {
		var typ string
		switch f.Type {
		case db.IndexFieldNumeric:
			typ = "NUMERIC"
		case db.IndexFieldBytes:
			typ = "BLOB"
		default:
			typ = "TEXT"
		}
		cols = append(cols, quote(f.Name)+" "+typ)
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.docs, strings.Join(cols, ", ")),
	}
	if text := def.TextFields(); len(text) > 0 {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, tokenize='unicode61')",
			t.fts, strings.Join(text, ", ")))
	}
	return stmts
}

func (d sqlite) upsert(t tables, def *db.IndexDefinition) string {
	marks := make([]string, 0, len(def.Fields)+1)
	sets := make([]string, 0, len(def.Fields))
	for i := 0; i <= len(def.Fields); i++ {
		marks = append(marks, d.placeholder(i+1))
	}
	for _, f := range def.Fields {
		sets = append(sets, quote(f.Name)+" = excluded."+quote(f.Name))
	}
	return fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s RETURNING rid",
		t.docs, columnList(def, ""), strings.Join(marks, ", "), strings.Join(sets, ", "))
}

func (sqlite) search(t tables, def *db.IndexDefinition, _ []string) (string, string) {
	hits := fmt.Sprintf(
		"SELECT d.id, -bm25(%[1]s) AS score%[3]s FROM %[1]s JOIN %[2]s d ON d.rid = %[1]s.rowid "+
			"WHERE %[1]s MATCH ? ORDER BY bm25(%[1]s) LIMIT ?",
		t.fts, t.docs, storedList(def, "d."))
	total := fmt.Sprintf("SELECT COUNT(*) FROM %[1]s WHERE %[1]s MATCH ?", t.fts)
	return hits, total
}

// match builds an FTS5 expression: any of the terms, restricted to fields.
func (sqlite) match(query string, fields []string) (string, error) {
	terms := tokens(query)
	if len(terms) == 0 {
		return "", fmt.Errorf("%w: query has no terms", domain.ErrInvalidQuery)
	}
	return "{" + strings.Join(fields, " ") + "} : (" + strings.Join(terms, " OR ") + ")", nil
}

func (sqlite) columns(def *db.IndexDefinition) []string {
	return append([]string{"rid", "id"}, fieldNames(def)...)
}

// --- Postgres ---

type postgres struct{}

func (postgres) name() string             { return "postgres" }
func (postgres) placeholder(i int) string { return "$" + strconv.Itoa(i) }
func (postgres) dateArgs() bool           { return true }

func (postgres) tableExists() string {
	return "SELECT to_regclass(current_schema() || '.' || quote_ident($1)) IS NOT NULL"
}

// tsvector builds the document vector over fields.
func tsvector(fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, "coalesce("+quote(f)+", '')")
	}
	return "to_tsvector('simple', " + strings.Join(parts, " || ' ' || ") + ")"
}

func (postgres) ddl(t tables, def *db.IndexDefinition) []string {
	cols := []string{"id TEXT PRIMARY KEY"}
	for _, f := range def.Fields {
		var typ string
		switch f.Type {
		case db.IndexFieldNumeric:
			typ = "NUMERIC"
		case db.IndexFieldDate:
			typ = "TIMESTAMPTZ"
		case db.IndexFieldBytes:
			typ = "BYTEA"
		default:
			typ = "TEXT"
		}
		cols = append(cols, quote(f.Name)+" "+typ)
	}
	if len(def.DefaultFields) > 0 {
		cols = append(cols, "tsv TSVECTOR GENERATED ALWAYS AS ("+tsvector(def.DefaultFields)+") STORED")
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.docs, strings.Join(cols, ", ")),
	}
	if len(def.DefaultFields) > 0 {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (tsv)",
			quote(strings.Trim(t.docs, `"`)+"_tsv"), t.docs))
	}
	return stmts
}

func (d postgres) upsert(t tables, def *db.IndexDefinition) string {
	marks := make([]string, 0, len(def.Fields)+1)
	sets := make([]string, 0, len(def.Fields))
	for i := 0; i <= len(def.Fields); i++ {
		marks = append(marks, d.placeholder(i+1))
	}
	for _, f := range def.Fields {
		sets = append(sets, quote(f.Name)+" = EXCLUDED."+quote(f.Name))
	}
	return fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.docs, columnList(def, ""), strings.Join(marks, ", "), strings.Join(sets, ", "))
}

// search uses the generated column when the query targets the default
// fields and computes the vector inline otherwise.
func (postgres) search(t tables, def *db.IndexDefinition, fields []string) (string, string) {
	vec := "tsv"
	if strings.Join(fields, ",") != strings.Join(def.DefaultFields, ",") {
		vec = tsvector(fields)
	}
	hits := fmt.Sprintf(
		"SELECT id, ts_rank(%[1]s, q) AS score%[3]s FROM %[2]s, websearch_to_tsquery('simple', $1) q "+
			"WHERE %[1]s @@ q ORDER BY score DESC, id LIMIT $2",
		vec, t.docs, storedList(def, ""))
	total := fmt.Sprintf(
		"SELECT COUNT(*) FROM %[2]s, websearch_to_tsquery('simple', $1) q WHERE %[1]s @@ q",
		vec, t.docs)
	return hits, total
}

func (postgres) columns(def *db.IndexDefinition) []string {
	cols := append([]string{"id"}, fieldNames(def)...)
	if len(def.DefaultFields) > 0 {
		cols = append(cols, "tsv")
	}
	return cols
}

// match joins terms with "or" so websearch_to_tsquery matches any of them.
func (postgres) match(query string, _ []string) (string, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return "", fmt.Errorf("%w: query has no terms", domain.ErrInvalidQuery)
	}
	return strings.Join(terms, " or "), nil
}
