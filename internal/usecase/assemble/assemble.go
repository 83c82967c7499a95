// Package assemble builds typed documents from raw records, one schema field at a time.
package assemble

import (
	"errors"

	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/domain/schema"
	"github.com/kailas-cloud/suntan/internal/usecase/coerce"
)

// Assemble coerces every schema field of rec into a new document. It never
// fails outright: fields that cannot be coerced are left out and reported in
// the returned slice, in schema order.
func Assemble(s *schema.Schema, rec document.Record) (*document.Document, []*coerce.Error) {
	doc := document.New()
	var errs []*coerce.Error

	for _, f := range s.Fields() {
		if s.IsRawSource(f.Name()) {
			doc.Set(f, document.TextValue(string(rec.Raw())))
			continue
		}

		v, err := coerce.Coerce(f, rec)
		if err != nil {
			var ce *coerce.Error
			if !errors.As(err, &ce) {
				ce = &coerce.Error{Field: f.Name(), Reason: coerce.ReasonUnsupported, Detail: err.Error()}
			}
			errs = append(errs, ce)
			continue
		}
		doc.Set(f, v)
	}

	if id := s.IDField(); id != "" {
		if v, ok := doc.Get(id); ok {
			doc.SetID(v.String())
		}
	}

	return doc, errs
}
