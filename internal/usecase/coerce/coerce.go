// Package coerce converts untyped JSON record members into schema-typed values.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/domain/schema/field"
)

// Coerce extracts f's member from rec and converts it to f's type.
// Failures are always *Error; rec is never modified.
func Coerce(f field.Field, rec document.Record) (document.Value, error) {
	name := f.Name()

	// Facets cannot be populated, whatever the record holds.
	if f.FieldType() == field.HierarchicalFacet {
		return document.Value{}, newError(name, ReasonUnsupported, "hierarchical facets are not supported")
	}

	raw, ok := rec.Lookup(name)
	if !ok || raw == nil {
		return document.Value{}, &Error{Field: name, Reason: ReasonMissing}
	}

	switch f.FieldType() {
	case field.Text:
		s, ok := raw.(string)
		if !ok {
			return document.Value{}, mismatch(name, "string", raw)
		}
		return document.TextValue(s), nil

	case field.U64:
		n, ok := raw.(json.Number)
		if !ok {
			return document.Value{}, mismatch(name, "number", raw)
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return document.Value{}, newError(name, ReasonTypeMismatch, "%s is not an unsigned 64-bit integer", n)
		}
		return document.U64Value(u), nil

	case field.I64:
		n, ok := raw.(json.Number)
		if !ok {
			return document.Value{}, mismatch(name, "number", raw)
		}
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return document.Value{}, newError(name, ReasonTypeMismatch, "%s is not a signed 64-bit integer", n)
		}
		return document.I64Value(i), nil

	case field.F64:
		n, ok := raw.(json.Number)
		if !ok {
			return document.Value{}, mismatch(name, "number", raw)
		}
		v, err := strconv.ParseFloat(n.String(), 64)
		if err != nil || math.IsInf(v, 0) {
			return document.Value{}, newError(name, ReasonTypeMismatch, "%s is out of float64 range", n)
		}
		return document.F64Value(v), nil

	case field.Date:
		switch v := raw.(type) {
		case string:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return document.Value{}, newError(name, ReasonParseFailure, "%q is not an RFC3339 timestamp", v)
			}
			return document.DateValue(t), nil
		case json.Number:
			// Epoch timestamps are deliberately not interpreted.
			return document.Value{}, newError(name, ReasonParseFailure, "numeric date %s is not an RFC3339 string", v)
		default:
			return document.Value{}, mismatch(name, "string", raw)
		}

	case field.Bytes:
		s, ok := raw.(string)
		if !ok {
			return document.Value{}, mismatch(name, "string", raw)
		}
		return document.BytesValue([]byte(s)), nil

	default:
		return document.Value{}, newError(name, ReasonUnsupported, "unknown field type %q", f.FieldType())
	}
}

func mismatch(name, want string, got any) *Error {
	return newError(name, ReasonTypeMismatch, "expected %s, got %s", want, jsonKind(got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "null"
	}
}
