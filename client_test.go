package suntan

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/migration"
	"github.com/kailas-cloud/suntan/internal/usecase/reconcile"
)

const peopleSchema = `
id_field: key
fields:
  - name: _source
    type: text
    stored: true
    raw_source: true
  - name: key
    type: text
    stored: true
  - name: name
    type: text
    indexed: true
    stored: true
  - name: born
    type: date
    indexed: true
    stored: true
`

const peopleDump = `{"key":"ada","name":"Ada Lovelace","born":"1815-12-10T00:00:00Z"}
{"key":"grace","name":"Grace Hopper","born":"1906"}
{"key":"alan","name":"Alan Turing","born":"1912-06-23T00:00:00Z"}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpen_NoIndex(t *testing.T) {
	_, err := Open(context.Background(), "schema.yaml")
	if err == nil {
		t.Fatal("expected error when no index option is given")
	}
}

func TestOpen_InvalidSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schema.yaml", "fields: []\n")
	_, err := Open(context.Background(), path, WithBleve(filepath.Join(dir, "idx")))
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("got %v, want ErrInvalidSchema", err)
	}
}

func TestOpenEngine_UnknownDriver(t *testing.T) {
	_, err := openEngine(context.Background(), &clientConfig{driver: "lucene"}, &db.IndexDefinition{})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSources_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := JSONL(missing, 10); err == nil {
		t.Error("jsonl: expected error for missing path")
	}
	if _, err := Parquet(missing, "", 10); err == nil {
		t.Error("parquet: expected error for missing path")
	}
	if _, err := Elastic(http.DefaultClient, ElasticConfig{URL: "http://es:9200"}); err == nil {
		t.Error("elastic: expected error without index")
	}
}

func TestClient_MigrateSearchVerify(t *testing.T) {
	for _, driver := range []string{"bleve", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			schemaPath := writeFile(t, dir, "schema.yaml", peopleSchema)
			dumpPath := writeFile(t, dir, "people.jsonl", peopleDump)

			opt := WithBleve(filepath.Join(dir, "people.bleve"))
			if driver == "sqlite" {
				opt = WithSQLite(filepath.Join(dir, "people.db"))
			}
			reg := prometheus.NewRegistry()
			c, err := Open(ctx, schemaPath, opt, WithIndexName("people"), WithMetrics(reg))
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer c.Close()

			if err := c.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}

			src, err := JSONL(dumpPath, 2)
			if err != nil {
				t.Fatalf("source: %v", err)
			}
			stats, err := c.Migrate(ctx, src)
			if err != nil {
				t.Fatalf("migrate: %v", err)
			}
			if !stats.Committed || stats.State != string(migration.StateDone) {
				t.Errorf("stats = %+v", stats)
			}
			if stats.DocsWritten != 3 || stats.DocsWithErrors != 1 || stats.FieldErrors["parse_failure"] != 1 {
				t.Errorf("counts = %+v", stats)
			}
			if stats.Batches != 2 {
				t.Errorf("batches = %d, want 2", stats.Batches)
			}
			if got := writtenCount(t, reg); got != 3 {
				t.Errorf("written counter = %v, want 3", got)
			}

			n, err := c.DocCount(ctx)
			if err != nil || n != 3 {
				t.Fatalf("doc count = %d, %v", n, err)
			}

			res, err := c.Search(ctx, "hopper", nil, 5)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(res.Hits) != 1 || res.Hits[0].ID != "grace" {
				t.Fatalf("hits = %+v", res.Hits)
			}
			if !strings.Contains(res.Hits[0].Fields["name"], "Grace") {
				t.Errorf("stored name missing: %+v", res.Hits[0].Fields)
			}

			report := c.Verify(ctx, stats, Query{Text: "turing", Limit: 3})
			if !report.OK() {
				t.Errorf("unexpected warnings: %+v", report.Warnings)
			}
			if !report.LiveKnown || report.LiveDocCount != 3 || len(report.Hits) != 1 {
				t.Errorf("report = %+v", report)
			}

			// id_field upserts: a second run replaces documents by key.
			src, _ = JSONL(dumpPath, 2)
			if _, err := c.Migrate(ctx, src); err != nil {
				t.Fatalf("re-run: %v", err)
			}
			if n, _ := c.DocCount(ctx); n != 3 {
				t.Errorf("doc count after re-run = %d, want 3", n)
			}
		})
	}
}

func TestClient_SearchInvalidQuery(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.yaml", peopleSchema)
	c, err := Open(context.Background(), schemaPath, WithBleve(filepath.Join(dir, "idx")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if _, err := c.Search(context.Background(), "  ", nil, 0); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("got %v, want ErrInvalidQuery", err)
	}
	if _, err := c.Migrate(context.Background(), Source{}); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestStatsRoundTrip(t *testing.T) {
	in := migration.NewStats()
	in.DocsWritten = 7
	in.FieldErrors["missing"] = 2
	in.State = migration.StateDone

	out := statsFromDomain(in).toDomain()
	if out.DocsWritten != 7 || out.FieldErrors["missing"] != 2 || out.State != migration.StateDone {
		t.Errorf("round trip = %+v", out)
	}

	// The public copy must not alias the internal map.
	pub := statsFromDomain(in)
	pub.FieldErrors["missing"] = 99
	if in.FieldErrors["missing"] != 2 {
		t.Error("FieldErrors aliased")
	}
}

func TestReportFromDomain(t *testing.T) {
	r := reportFromDomain(reconcile.Report{
		LiveDocCount: 4,
		LiveKnown:    true,
		QueryHits:    []db.SearchEntry{{ID: "a", Score: 1}},
		Warnings:     []reconcile.Warning{{Kind: reconcile.LiveCountMismatch, Message: "x"}},
	})
	if r.OK() || r.Warnings[0].Kind != string(reconcile.LiveCountMismatch) {
		t.Errorf("warnings = %+v", r.Warnings)
	}
	if len(r.Hits) != 1 || r.Hits[0].ID != "a" {
		t.Errorf("hits = %+v", r.Hits)
	}
}

func writtenCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "suntan_migration_documents_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == "written" {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatal("written counter not found")
	return 0
}
