package schema

import (
	"fmt"

	"github.com/kailas-cloud/suntan/internal/domain"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

// Schema is the immutable target schema: an ordered set of uniquely named
// fields plus the optional raw-source and id field designations.
type Schema struct {
	fields    []field.Field
	byName    map[string]int
	rawSource string
	idField   string
}

// New validates and creates a Schema. rawSource and idField may be empty.
func New(fields []field.Field, rawSource, idField string) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: at least one field is required", domain.ErrInvalidSchema)
	}

	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := byName[f.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate field name %q", domain.ErrInvalidSchema, f.Name())
		}
		byName[f.Name()] = i
	}

	s := &Schema{
		fields:    append([]field.Field(nil), fields...),
		byName:    byName,
		rawSource: rawSource,
		idField:   idField,
	}

	if rawSource != "" {
		f, ok := s.Field(rawSource)
		if !ok {
			return nil, fmt.Errorf("%w: raw source field %q is not declared", domain.ErrInvalidSchema, rawSource)
		}
		if f.FieldType() != field.Text || !f.Stored() {
			return nil, fmt.Errorf("%w: raw source field %q must be a stored text field",
				domain.ErrInvalidSchema, rawSource)
		}
	}

	if idField != "" {
		f, ok := s.Field(idField)
		if !ok {
			return nil, fmt.Errorf("%w: id field %q is not declared", domain.ErrInvalidSchema, idField)
		}
		switch f.FieldType() {
		case field.Text, field.U64, field.I64:
		default:
			return nil, fmt.Errorf("%w: id field %q must be text, u64 or i64, got %s",
				domain.ErrInvalidSchema, idField, f.FieldType())
		}
		if idField == rawSource {
			return nil, fmt.Errorf("%w: id field %q cannot be the raw source field", domain.ErrInvalidSchema, idField)
		}
	}

	return s, nil
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []field.Field {
	return append([]field.Field(nil), s.fields...)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (field.Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return field.Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// RawSource returns the raw-source field name, or "" when none is configured.
func (s *Schema) RawSource() string { return s.rawSource }

// IDField returns the id field name, or "" when documents carry no identity.
func (s *Schema) IDField() string { return s.idField }

// IsRawSource reports whether name is the raw-source field.
func (s *Schema) IsRawSource(name string) bool {
	return s.rawSource != "" && s.rawSource == name
}

// TextFields returns the names of indexed text fields, the default search scope.
func (s *Schema) TextFields() []string {
	var out []string
	for _, f := range s.fields {
		if f.FieldType() == field.Text && f.Indexed() {
			out = append(out, f.Name())
		}
	}
	return out
}
