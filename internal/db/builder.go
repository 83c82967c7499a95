package db

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/suntan/internal/domain/schema"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

func (b *IndexBuilder) add(name string, t IndexFieldType, flags Flags) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:    name,
		Type:    t,
		Indexed: flags&Indexed != 0,
		Stored:  flags&Stored != 0,
	})
	return b
}

// Text adds a full-text field.
func (b *IndexBuilder) Text(name string, flags Flags) *IndexBuilder {
	return b.add(name, IndexFieldText, flags)
}

// Numeric adds a numeric field.
func (b *IndexBuilder) Numeric(name string, flags Flags) *IndexBuilder {
	return b.add(name, IndexFieldNumeric, flags)
}

// Date adds a timestamp field.
func (b *IndexBuilder) Date(name string, flags Flags) *IndexBuilder {
	return b.add(name, IndexFieldDate, flags)
}

// Bytes adds an exact-match payload field.
func (b *IndexBuilder) Bytes(name string, flags Flags) *IndexBuilder {
	return b.add(name, IndexFieldBytes, flags)
}

// DefaultFields sets the fields searched when a query names none.
func (b *IndexBuilder) DefaultFields(names ...string) *IndexBuilder {
	b.def.DefaultFields = append(b.def.DefaultFields, names...)
	return b
}

// Build validates and returns the index definition. Without explicit
// default fields, every indexed text field is searched.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	if len(def.DefaultFields) == 0 {
		def.DefaultFields = def.TextFields()
	}
	return &def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// FromSchema derives an index definition from a schema. Facet fields are
// skipped since they never receive values.
func FromSchema(name string, s *schema.Schema) (*IndexDefinition, error) {
	b := NewIndex(name)
	for _, f := range s.Fields() {
		var flags Flags
		if f.Indexed() {
			flags |= Indexed
		}
		if f.Stored() {
			flags |= Stored
		}

		switch f.FieldType() {
		case field.Text:
			b.Text(f.Name(), flags)
		case field.U64, field.I64, field.F64:
			b.Numeric(f.Name(), flags)
		case field.Date:
			b.Date(f.Name(), flags)
		case field.Bytes:
			b.Bytes(f.Name(), flags)
		case field.HierarchicalFacet:
			continue
		default:
			return nil, fmt.Errorf("field %q: unsupported type %q", f.Name(), f.FieldType())
		}
	}
	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("index definition: %w", err)
	}
	return def, nil
}

// String returns a debug representation of the definition.
func (idx *IndexDefinition) String() string {
	parts := []string{"INDEX", idx.Name, "SCHEMA"}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name, f.Type.String())
		if !f.Indexed {
			parts = append(parts, "NOINDEX")
		}
		if f.Stored {
			parts = append(parts, "STORED")
		}
	}
	if len(idx.DefaultFields) > 0 {
		parts = append(parts, "DEFAULT")
		parts = append(parts, idx.DefaultFields...)
	}
	return strings.Join(parts, " ")
}
