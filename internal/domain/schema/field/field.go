package field

import "fmt"

// Type is the value type of a schema field.
type Type string

// Field type constants. The set is closed: every switch over Type must
// handle all of them.
const (
	Text              Type = "text"
	U64               Type = "u64"
	I64               Type = "i64"
	F64               Type = "f64"
	Date              Type = "date"
	Bytes             Type = "bytes"
	HierarchicalFacet Type = "facet"
)

// Types lists every field type in declaration order.
var Types = []Type{Text, U64, I64, F64, Date, Bytes, HierarchicalFacet}

var typeAliases = map[string]Type{
	"hierarchical_facet": HierarchicalFacet,
	"datetime":           Date,
}

// ParseType resolves a type tag from a schema description.
func ParseType(tag string) (Type, error) {
	for _, t := range Types {
		if string(t) == tag {
			return t, nil
		}
	}
	if t, ok := typeAliases[tag]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", tag)
}

// Field is an immutable value object describing one schema field.
type Field struct {
	name      string
	fieldType Type
	indexed   bool
	stored    bool
}

// New validates and creates a Field.
// Name must be non-empty and at most 128 bytes; type must be known.
func New(name string, ft Type, indexed, stored bool) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 128 {
		return Field{}, fmt.Errorf("field name %q too long (max 128)", name)
	}
	if _, err := ParseType(string(ft)); err != nil {
		return Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	return Field{name: name, fieldType: ft, indexed: indexed, stored: stored}, nil
}

// Reconstruct creates a Field without validation.
func Reconstruct(name string, ft Type, indexed, stored bool) Field {
	return Field{name: name, fieldType: ft, indexed: indexed, stored: stored}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's value type.
func (f Field) FieldType() Type { return f.fieldType }

// Indexed reports whether the field is searchable.
func (f Field) Indexed() bool { return f.indexed }

// Stored reports whether the field value is retrievable from hits.
func (f Field) Stored() bool { return f.stored }

// IsNumeric reports whether the field holds a U64, I64 or F64 value.
func (f Field) IsNumeric() bool {
	return f.fieldType == U64 || f.fieldType == I64 || f.fieldType == F64
}
