package db

import (
	"errors"
	"strconv"
)

// IndexFieldType enumerates the engine-level field kinds.
type IndexFieldType int

const (
	// IndexFieldText is an analysed full-text field.
	IndexFieldText IndexFieldType = iota
	// IndexFieldNumeric is a numeric field (u64, i64 or f64 values).
	IndexFieldNumeric
	// IndexFieldDate is a timestamp field.
	IndexFieldDate
	// IndexFieldBytes is an opaque, exact-match payload field.
	IndexFieldBytes
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldText:
		return "TEXT"
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldDate:
		return "DATE"
	case IndexFieldBytes:
		return "BYTES"
	default:
		return "UNKNOWN"
	}
}

// Flags select indexing and storage behaviour of a field.
type Flags uint8

const (
	// Indexed makes the field searchable.
	Indexed Flags = 1 << iota
	// Stored makes the field value retrievable from hits.
	Stored
)

// IndexField describes a single field of an index.
type IndexField struct {
	Name    string
	Type    IndexFieldType
	Indexed bool
	Stored  bool
}

// IndexDefinition is a complete, engine-neutral index definition.
type IndexDefinition struct {
	Name   string
	Fields []IndexField
	// DefaultFields are searched when a query names no fields.
	DefaultFields []string
}

// Field looks up a field by name.
func (idx *IndexDefinition) Field(name string) (IndexField, bool) {
	for _, f := range idx.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return IndexField{}, false
}

// StoredFields returns the names of stored fields in definition order.
func (idx *IndexDefinition) StoredFields() []string {
	var out []string
	for _, f := range idx.Fields {
		if f.Stored {
			out = append(out, f.Name)
		}
	}
	return out
}

// TextFields returns the names of indexed text fields in definition order.
func (idx *IndexDefinition) TextFields() []string {
	var out []string
	for _, f := range idx.Fields {
		if f.Type == IndexFieldText && f.Indexed {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !IsValidFieldName(f.Name) {
			return errors.New("field name contains invalid characters: " + f.Name)
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}

	for _, name := range idx.DefaultFields {
		f, ok := idx.Field(name)
		if !ok {
			return errors.New("default field is not defined: " + name)
		}
		if f.Type != IndexFieldText || !f.Indexed {
			return errors.New("default field must be an indexed text field: " + name)
		}
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}

// IsValidFieldName returns true if s matches [a-zA-Z0-9_.@-]+ and does not
// start with a digit, so every engine can use it as a column or attribute.
func IsValidFieldName(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '.' || r == '@' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
