package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/suntan/internal/domain"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

const validYAML = `
id_field: id
fields:
  - name: _source
    type: text
    stored: true
    raw_source: true
  - name: id
    type: text
    stored: true
  - name: name
    type: text
    indexed: true
    stored: true
  - name: views
    type: u64
    indexed: true
  - name: created
    type: date
    stored: true
`

func TestLoad_Valid(t *testing.T) {
	s, err := Load(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("len = %d, want 5", s.Len())
	}
	if s.RawSource() != "_source" {
		t.Errorf("raw source = %q, want _source", s.RawSource())
	}
	if s.IDField() != "id" {
		t.Errorf("id field = %q, want id", s.IDField())
	}

	names := make([]string, 0, s.Len())
	for _, f := range s.Fields() {
		names = append(names, f.Name())
	}
	if got := strings.Join(names, ","); got != "_source,id,name,views,created" {
		t.Errorf("order = %s", got)
	}

	views, ok := s.Field("views")
	if !ok {
		t.Fatal("views not found")
	}
	if views.FieldType() != field.U64 || !views.Indexed() || views.Stored() {
		t.Errorf("views = %+v", views)
	}

	if got := s.TextFields(); len(got) != 1 || got[0] != "name" {
		t.Errorf("text fields = %v, want [name]", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	in := `{"fields": [{"name": "title", "type": "text", "indexed": true, "stored": true}]}`
	s, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RawSource() != "" || s.IDField() != "" {
		t.Errorf("unexpected designations: raw=%q id=%q", s.RawSource(), s.IDField())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"malformed", "fields: [name: {"},
		{"no fields", "fields: []"},
		{"unknown key", "fields:\n  - {name: a, type: text, tokenizer: raw}"},
		{"unknown type", "fields:\n  - {name: a, type: geo}"},
		{"missing name", "fields:\n  - {type: text}"},
		{"duplicate", "fields:\n  - {name: a, type: text}\n  - {name: a, type: u64}"},
		{"two raw sources", "fields:\n" +
			"  - {name: a, type: text, stored: true, raw_source: true}\n" +
			"  - {name: b, type: text, stored: true, raw_source: true}"},
		{"raw source not text", "fields:\n  - {name: a, type: bytes, stored: true, raw_source: true}"},
		{"raw source not stored", "fields:\n  - {name: a, type: text, raw_source: true}"},
		{"id not declared", "id_field: x\nfields:\n  - {name: a, type: text}"},
		{"id wrong type", "id_field: a\nfields:\n  - {name: a, type: f64}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidSchema) {
				t.Errorf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 5 {
		t.Errorf("len = %d, want 5", s.Len())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	s, err := New([]field.Field{field.Reconstruct("a", field.Text, true, true)}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	fs := s.Fields()
	fs[0] = field.Reconstruct("b", field.U64, false, false)
	if f, _ := s.Field("a"); f.FieldType() != field.Text {
		t.Error("schema mutated through Fields()")
	}
	if s.Fields()[0].Name() != "a" {
		t.Error("schema order mutated through Fields()")
	}
}
