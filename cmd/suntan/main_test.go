package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/suntan/internal/version"
)

const testSchema = `
fields:
  - name: _source
    type: text
    stored: true
    raw_source: true
  - name: name
    type: text
    indexed: true
    stored: true
  - name: age
    type: u64
    indexed: true
    stored: true
`

const testDump = `{"name":"Ada Lovelace","age":36}
{"name":"Grace Hopper","age":85}
{"name":"Alan Turing","age":"forty-one"}
not json at all
`

// --- Helpers ---

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// workspace writes a schema, a dump and a config wired to them, returning
// the config path.
func workspace(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	schemaPath := write("schema.yaml", testSchema)
	dumpPath := write("dump.jsonl", testDump)

	indexPath := filepath.Join(dir, "index.bleve")
	if driver == "sqlite" {
		indexPath = filepath.Join(dir, "index.db")
	}
	return write("suntan.yaml", fmt.Sprintf(`
logging:
  level: error
source:
  kind: jsonl
  path: %s
  batch_size: 2
schema:
  path: %s
index:
  driver: %s
  path: %s
verify:
  query: lovelace
`, dumpPath, schemaPath, driver, indexPath))
}

// --- Tests ---

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version.Version) {
		t.Errorf("output %q lacks version", out)
	}
}

func TestSchemaCheck(t *testing.T) {
	out, err := execute(t, "schema", "check", filepath.Join("..", "..", "config", "schema.example.yaml"))
	if err != nil {
		t.Fatalf("schema check: %v", err)
	}
	for _, want := range []string{"7 fields", "id field: slug", "published_at"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestSchemaCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("fields:\n  - name: x\n    type: blob\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "schema", "check", path); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestMigrateVerifySearch(t *testing.T) {
	for _, driver := range []string{"bleve", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := workspace(t, driver)

			out, err := execute(t, "migrate", "--config", cfg)
			if err != nil {
				t.Fatalf("migrate: %v\n%s", err, out)
			}
			for _, want := range []string{
				"state=done", "committed=true", "read=4", "written=3",
				"with_errors=1", "skipped=1", "field_errors[type_mismatch]=1",
				"failed=1", "field_errors=1",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("migrate output lacks %q:\n%s", want, out)
				}
			}
			// The source reports four lines, three documents were written.
			if !strings.Contains(out, "source_count_mismatch") {
				t.Errorf("expected a source count warning:\n%s", out)
			}

			out, err = execute(t, "verify", "--config", cfg)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if !strings.Contains(out, "live documents: 3") {
				t.Errorf("verify output:\n%s", out)
			}

			out, err = execute(t, "search", "--config", cfg, "grace")
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !strings.Contains(out, "Grace Hopper") {
				t.Errorf("search output:\n%s", out)
			}
		})
	}
}

func TestMigrate_RefusesNonEmptyIndex(t *testing.T) {
	cfg := workspace(t, "bleve")

	if _, err := execute(t, "migrate", "--config", cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	_, err := execute(t, "migrate", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("second run: got %v, want target not empty", err)
	}
	if !strings.Contains(err.Error(), "aborted, nothing committed") {
		t.Errorf("refusal should read as an aborted run: %v", err)
	}

	out, err := execute(t, "migrate", "--config", cfg, "--allow-append")
	if err != nil {
		t.Fatalf("append run: %v", err)
	}
	if !strings.Contains(out, "live_count_mismatch") {
		t.Errorf("append run should warn about the live count:\n%s", out)
	}
}

func TestMigrate_MissingSource(t *testing.T) {
	cfg := workspace(t, "bleve")
	_, err := execute(t, "migrate", "--config", cfg, "--source", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	cfg := workspace(t, "bleve")
	if _, err := execute(t, "search", "--config", cfg, " "); err == nil {
		t.Fatal("expected invalid query error")
	}
}

func TestMigrate_RejectsChangedSchema(t *testing.T) {
	for _, driver := range []string{"bleve", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := workspace(t, driver)
			if _, err := execute(t, "migrate", "--config", cfg); err != nil {
				t.Fatalf("first run: %v", err)
			}

			changed := testSchema + `  - name: title
    type: text
    indexed: true
`
			schemaPath := filepath.Join(filepath.Dir(cfg), "schema.yaml")
			if err := os.WriteFile(schemaPath, []byte(changed), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := execute(t, "migrate", "--config", cfg, "--allow-append")
			if err == nil || !strings.Contains(err.Error(), "does not match definition") {
				t.Fatalf("got %v, want schema mismatch", err)
			}
		})
	}
}
