package bleve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

func testDef() *db.IndexDefinition {
	return db.NewIndex("people").
		Text("_source", db.Stored).
		Text("name", db.Indexed|db.Stored).
		Text("bio", db.Indexed).
		Numeric("age", db.Indexed|db.Stored).
		Date("born", db.Indexed|db.Stored).
		MustBuild()
}

func person(id, name, bio string, age int64) *document.Document {
	d := document.New()
	d.SetID(id)
	d.Set(field.Reconstruct("_source", field.Text, false, true), document.TextValue(`{"name":"`+name+`"}`))
	d.Set(field.Reconstruct("name", field.Text, true, true), document.TextValue(name))
	d.Set(field.Reconstruct("bio", field.Text, true, false), document.TextValue(bio))
	d.Set(field.Reconstruct("age", field.I64, true, true), document.I64Value(age))
	d.Set(field.Reconstruct("born", field.Date, true, true),
		document.DateValue(time.Date(1990, 1, 2, 3, 4, 5, 0, time.UTC)))
	return d
}

func TestEngine_WriteCommitSearch(t *testing.T) {
	ctx := context.Background()
	e, err := Open(Config{Path: filepath.Join(t.TempDir(), "idx")}, testDef())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer e.Close()

	w, err := e.Writer(ctx, 0)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	defer w.Close()

	for _, d := range []*document.Document{
		person("1", "ada lovelace", "wrote the first program", 36),
		person("2", "alan turing", "broke enigma", 41),
		person("3", "grace hopper", "built the first compiler", 85),
	} {
		if err := w.Add(ctx, d); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	n, err := e.DocCount(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	res, err := e.Search(ctx, &db.TextQuery{Query: "turing"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("hits = %d/%d, want 1", res.Total, len(res.Entries))
	}
	hit := res.Entries[0]
	if hit.ID != "2" {
		t.Errorf("id = %q, want 2", hit.ID)
	}
	if hit.Fields["name"] != "alan turing" {
		t.Errorf("name = %q", hit.Fields["name"])
	}
	if hit.Fields["age"] != "41" {
		t.Errorf("age = %q, want 41", hit.Fields["age"])
	}
	if hit.Fields["_source"] != `{"name":"alan turing"}` {
		t.Errorf("_source = %q", hit.Fields["_source"])
	}
	if _, ok := hit.Fields["bio"]; ok {
		t.Error("bio is not stored and should not be returned")
	}

	res, err = e.Search(ctx, &db.TextQuery{Query: "first", Fields: []string{"bio"}, Limit: 1})
	if err != nil {
		t.Fatalf("search bio: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
	if len(res.Entries) != 1 {
		t.Errorf("entries = %d, want 1 (limit)", len(res.Entries))
	}
}

func TestEngine_ReopenKeepsDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	e, err := Open(Config{Path: path}, testDef())
	if err != nil {
		t.Fatal(err)
	}
	w, _ := e.Writer(ctx, 0)
	if err := w.Add(ctx, person("1", "ada", "x", 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	e, err = Open(Config{Path: path}, testDef())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e.Close()
	if n, _ := e.DocCount(ctx); n != 1 {
		t.Errorf("count after reopen = %d, want 1", n)
	}
}

func TestWriter_CloseDiscardsPending(t *testing.T) {
	ctx := context.Background()
	e, err := newMemEngine(testDef())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	w, _ := e.Writer(ctx, 1<<20)
	if err := w.Add(ctx, person("1", "ada", "x", 1)); err != nil {
		t.Fatal(err)
	}
	_ = w.Close()

	if n, _ := e.DocCount(ctx); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	if err := w.Add(ctx, person("2", "b", "y", 2)); !errors.Is(err, db.ErrWriterClosed) {
		t.Errorf("add after close: got %v, want ErrWriterClosed", err)
	}
	if err := w.Commit(ctx); !errors.Is(err, db.ErrWriterClosed) {
		t.Errorf("commit after close: got %v, want ErrWriterClosed", err)
	}
}

func TestWriter_FlushesWhenBufferFull(t *testing.T) {
	ctx := context.Background()
	e, err := newMemEngine(testDef())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	w, _ := e.Writer(ctx, 1)
	defer w.Close()
	if err := w.Add(ctx, person("1", "ada", "x", 1)); err != nil {
		t.Fatal(err)
	}
	if n, _ := e.DocCount(ctx); n != 1 {
		t.Errorf("count = %d, want 1 after overflowing flush", n)
	}
}

func TestWriter_RequiresID(t *testing.T) {
	ctx := context.Background()
	e, err := newMemEngine(testDef())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	w, _ := e.Writer(ctx, 0)
	defer w.Close()
	if err := w.Add(ctx, document.New()); !errors.Is(err, db.ErrMissingID) {
		t.Errorf("got %v, want ErrMissingID", err)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	e, err := newMemEngine(testDef())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := e.Search(context.Background(), &db.TextQuery{}); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := e.Search(context.Background(), &db.TextQuery{Query: "x", Fields: []string{"age"}}); err == nil {
		t.Error("expected error for numeric field")
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}, testDef()); err == nil {
		t.Error("expected error")
	}
}

func TestOpen_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	titled := db.NewIndex("docs").Text("title", db.Indexed|db.Stored).MustBuild()
	bodied := db.NewIndex("docs").Text("body", db.Indexed|db.Stored).MustBuild()

	e, err := Open(Config{Path: path}, titled)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(Config{Path: path}, bodied); !errors.Is(err, db.ErrSchemaMismatch) {
		t.Fatalf("reopen with other fields: got %v, want ErrSchemaMismatch", err)
	}
	storedOnly := db.NewIndex("docs").Text("title", db.Stored).MustBuild()
	if _, err := Open(Config{Path: path}, storedOnly); !errors.Is(err, db.ErrSchemaMismatch) {
		t.Fatalf("reopen with changed flags: got %v, want ErrSchemaMismatch", err)
	}

	again, err := Open(Config{Path: path}, titled)
	if err != nil {
		t.Fatalf("reopen with same schema: %v", err)
	}
	_ = again.Close()
}

func TestWriter_FailedBatchIsDropped(t *testing.T) {
	ctx := context.Background()
	e, err := newMemEngine(testDef())
	if err != nil {
		t.Fatal(err)
	}
	w, _ := e.Writer(ctx, 0)
	for _, id := range []string{"1", "2"} {
		if err := w.Add(ctx, person(id, "ada", "math", 36)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	// A closed index refuses every batch.
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	err = w.Commit(ctx)
	if !errors.Is(err, db.ErrFlushFailed) {
		t.Fatalf("got %v, want ErrFlushFailed", err)
	}
	if got := db.LostIDs(err); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("lost ids = %v", got)
	}
	if err := w.Commit(ctx); err != nil {
		t.Errorf("failed batch was resubmitted: %v", err)
	}
}
