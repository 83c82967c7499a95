// Package bleve implements the index engine on an on-disk bleve index.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/suntan/internal/db"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

// Config holds the index location.
type Config struct {
	Path string
}

// Engine is a bleve-backed index.
type Engine struct {
	index bleve.Index
	def   *db.IndexDefinition
}

// Open opens the index at cfg.Path, creating it from def when absent.
func Open(cfg Config, def *db.IndexDefinition) (*Engine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := def.Validate(); err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	if _, err := os.Stat(cfg.Path); err == nil {
		idx, err := bleve.Open(cfg.Path)
		if err != nil {
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
		if err := checkMapping(idx, def); err != nil {
			_ = idx.Close()
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
		return &Engine{index: idx, def: def}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	idx, err := bleve.New(cfg.Path, buildMapping(def))
	if err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return &Engine{index: idx, def: def}, nil
}

// newMemEngine creates an in-memory index.
func newMemEngine(def *db.IndexDefinition) (*Engine, error) {
	idx, err := bleve.NewMemOnly(buildMapping(def))
	if err != nil {
		return nil, &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return &Engine{index: idx, def: def}, nil
}

// Definition returns the index definition the engine was opened with.
func (e *Engine) Definition() *db.IndexDefinition { return e.def }

// Ping checks that the index answers a count.
func (e *Engine) Ping(_ context.Context) error {
	if _, err := e.index.DocCount(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// DocCount returns the number of documents visible to readers.
func (e *Engine) DocCount(_ context.Context) (uint64, error) {
	n, err := e.index.DocCount()
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// Close closes the index.
func (e *Engine) Close() error {
	if err := e.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return nil
}

// buildMapping translates the definition into a static bleve mapping: only
// declared fields are indexed or stored.
func buildMapping(def *db.IndexDefinition) *mapping.IndexMappingImpl {
	dm := bleve.NewDocumentStaticMapping()
	for _, f := range def.Fields {
		var fm *mapping.FieldMapping
		switch f.Type {
		case db.IndexFieldNumeric:
			fm = bleve.NewNumericFieldMapping()
		case db.IndexFieldDate:
			fm = bleve.NewDateTimeFieldMapping()
		case db.IndexFieldBytes:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
		default:
			fm = bleve.NewTextFieldMapping()
		}
		fm.Index = f.Indexed
		fm.Store = f.Stored
		fm.IncludeInAll = f.Indexed && f.Type == db.IndexFieldText
		fm.IncludeTermVectors = f.Indexed && f.Type == db.IndexFieldText
		dm.AddFieldMappingsAt(f.Name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = dm
	im.IndexDynamic = false
	im.StoreDynamic = false
	return im
}

// fieldShape is the part of a field mapping that decides what gets indexed.
type fieldShape struct {
	typ      string
	analyzer string
	index    bool
	store    bool
}

func (f fieldShape) String() string {
	return fmt.Sprintf("%s(index=%t,store=%t)", f.typ, f.index, f.store)
}

func fieldShapes(m *mapping.IndexMappingImpl) map[string]fieldShape {
	out := make(map[string]fieldShape)
	if m == nil || m.DefaultMapping == nil {
		return out
	}
	for name, dm := range m.DefaultMapping.Properties {
		for _, fm := range dm.Fields {
			out[name] = fieldShape{typ: fm.Type, analyzer: fm.Analyzer, index: fm.Index, store: fm.Store}
		}
	}
	return out
}

// checkMapping compares the mapping stored in an existing index with the
// one def would create. bleve keeps the mapping it was created with, so a
// changed schema would otherwise leave new fields unindexed.
func checkMapping(idx bleve.Index, def *db.IndexDefinition) error {
	stored, ok := idx.Mapping().(*mapping.IndexMappingImpl)
	if !ok {
		return fmt.Errorf("%w: unexpected mapping %T", db.ErrSchemaMismatch, idx.Mapping())
	}
	have, want := fieldShapes(stored), fieldShapes(buildMapping(def))
	if maps.Equal(have, want) {
		return nil
	}
	return fmt.Errorf("%w: index has [%s], schema wants [%s]",
		db.ErrSchemaMismatch, describeShapes(have), describeShapes(want))
}

func describeShapes(shapes map[string]fieldShape) string {
	parts := make([]string, 0, len(shapes))
	for _, name := range slices.Sorted(maps.Keys(shapes)) {
		parts = append(parts, name+" "+shapes[name].String())
	}
	return strings.Join(parts, ", ")
}
