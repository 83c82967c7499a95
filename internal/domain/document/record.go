package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kailas-cloud/suntan/internal/domain"
)

// Raw is one opaque JSON-encoded source record.
type Raw []byte

// Record is a parsed raw record: the original bytes plus the top-level
// object members. Numbers are kept as json.Number so integer domains are
// checked against the literal, not a float64 approximation.
type Record struct {
	raw    Raw
	fields map[string]any
}

// ParseError reports a raw record that is not a single JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return domain.ErrMalformedDocument.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the sentinel and the decoder cause.
func (e *ParseError) Unwrap() []error { return []error{domain.ErrMalformedDocument, e.Err} }

// ParseRecord decodes raw as a JSON object.
func ParseRecord(raw Raw) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Record{}, &ParseError{Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, &ParseError{Err: fmt.Errorf("expected JSON object, got %T", v)}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, &ParseError{Err: errors.New("trailing data after JSON object")}
	}

	return Record{raw: raw, fields: obj}, nil
}

// Raw returns the original bytes.
func (r Record) Raw() Raw { return r.raw }

// Lookup returns the decoded value of a top-level member.
func (r Record) Lookup(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Len returns the number of top-level members.
func (r Record) Len() int { return len(r.fields) }
