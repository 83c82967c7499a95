package document

import (
	"strconv"
	"time"
)

// Kind tags the variant held by a Value.
type Kind int

// Value kinds, one per populatable field type.
const (
	KindText Kind = iota + 1
	KindU64
	KindI64
	KindF64
	KindDate
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindF64:
		return "f64"
	case KindDate:
		return "date"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Value is a coerced field value. Exactly one variant is populated, selected
// by Kind. The zero Value is invalid.
type Value struct {
	kind Kind
	s    string
	u    uint64
	i    int64
	f    float64
	t    time.Time
	b    []byte
}

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: KindText, s: s} }

// U64Value wraps an unsigned integer.
func U64Value(u uint64) Value { return Value{kind: KindU64, u: u} }

// I64Value wraps a signed integer.
func I64Value(i int64) Value { return Value{kind: KindI64, i: i} }

// F64Value wraps a float.
func F64Value(f float64) Value { return Value{kind: KindF64, f: f} }

// DateValue wraps a timestamp.
func DateValue(t time.Time) Value { return Value{kind: KindDate, t: t} }

// BytesValue wraps a byte payload. The slice is copied.
func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte(nil), b...)}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a variant.
func (v Value) IsValid() bool { return v.kind != 0 }

// Text returns the text variant.
func (v Value) Text() string { return v.s }

// U64 returns the unsigned variant.
func (v Value) U64() uint64 { return v.u }

// I64 returns the signed variant.
func (v Value) I64() int64 { return v.i }

// F64 returns the float variant.
func (v Value) F64() float64 { return v.f }

// Date returns the timestamp variant.
func (v Value) Date() time.Time { return v.t }

// Bytes returns a copy of the bytes variant.
func (v Value) Bytes() []byte { return append([]byte(nil), v.b...) }

// Float returns numeric variants widened to float64.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindU64:
		return float64(v.u), true
	case KindI64:
		return float64(v.i), true
	case KindF64:
		return v.f, true
	default:
		return 0, false
	}
}

// String renders the canonical text form used for ids and text-only stores.
// Dates render as RFC3339 with nanoseconds.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindU64:
		return strconv.FormatUint(v.u, 10)
	case KindI64:
		return strconv.FormatInt(v.i, 10)
	case KindF64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format(time.RFC3339Nano)
	case KindBytes:
		return string(v.b)
	default:
		return ""
	}
}

// Size estimates the in-memory payload size in bytes.
func (v Value) Size() int {
	switch v.kind {
	case KindText:
		return len(v.s)
	case KindBytes:
		return len(v.b)
	default:
		return 8
	}
}
