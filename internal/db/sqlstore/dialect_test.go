package sqlstore

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/suntan/internal/db"
)

func TestTablesFor(t *testing.T) {
	got := tablesFor("people-v1:a")
	if got.docs != `"people_v1_a_docs"` || got.fts != `"people_v1_a_fts"` {
		t.Errorf("tables = %+v", got)
	}
}

func TestSQLiteMatch(t *testing.T) {
	m, err := sqlite{}.match(`ada "lace`, []string{"name", "bio"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{name bio} : ("ada" OR """lace")`
	if m != want {
		t.Errorf("match = %s, want %s", m, want)
	}
}

func TestPostgresStatements(t *testing.T) {
	def := db.NewIndex("people").
		Text("name", db.Indexed|db.Stored).
		Text("bio", db.Indexed).
		Numeric("age", db.Stored).
		Date("born", db.Stored).
		MustBuild()
	tb := tablesFor(def.Name)
	d := postgres{}

	ddl := d.ddl(tb, def)
	if len(ddl) != 2 {
		t.Fatalf("ddl statements = %d, want 2", len(ddl))
	}
	for _, want := range []string{`"born" TIMESTAMPTZ`, `"age" NUMERIC`, "GENERATED ALWAYS AS", `coalesce("bio", '')`} {
		if !strings.Contains(ddl[0], want) {
			t.Errorf("table ddl missing %q: %s", want, ddl[0])
		}
	}
	if !strings.Contains(ddl[1], "USING GIN (tsv)") {
		t.Errorf("index ddl = %s", ddl[1])
	}

	up := d.upsert(tb, def)
	if !strings.Contains(up, "VALUES ($1, $2, $3, $4, $5)") || !strings.Contains(up, "ON CONFLICT (id)") {
		t.Errorf("upsert = %s", up)
	}

	hits, _ := d.search(tb, def, def.DefaultFields)
	if !strings.Contains(hits, "ts_rank(tsv, q)") {
		t.Errorf("default search should use generated column: %s", hits)
	}
	hits, total := d.search(tb, def, []string{"bio"})
	if strings.Contains(hits, "ts_rank(tsv") || !strings.Contains(total, `coalesce("bio", '')`) {
		t.Errorf("field search should build vector inline: %s / %s", hits, total)
	}

	m, err := d.match("ada  turing", nil)
	if err != nil || m != "ada or turing" {
		t.Errorf("match = %q (%v)", m, err)
	}
}
