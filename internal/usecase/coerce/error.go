package coerce

import (
	"fmt"

	"github.com/kailas-cloud/suntan/internal/domain"
)

// Reason classifies a per-field coercion failure.
type Reason string

// Coercion failure reasons.
const (
	ReasonMissing      Reason = "missing"
	ReasonTypeMismatch Reason = "type_mismatch"
	ReasonParseFailure Reason = "parse_failure"
	ReasonUnsupported  Reason = "unsupported"
)

// Reasons lists every reason, for metrics pre-registration and summaries.
var Reasons = []Reason{ReasonMissing, ReasonTypeMismatch, ReasonParseFailure, ReasonUnsupported}

var reasonSentinels = map[Reason]error{
	ReasonMissing:      domain.ErrFieldMissing,
	ReasonTypeMismatch: domain.ErrFieldTypeMismatch,
	ReasonParseFailure: domain.ErrFieldParse,
	ReasonUnsupported:  domain.ErrFieldUnsupported,
}

// Error is a recoverable per-field coercion failure.
type Error struct {
	Field  string
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s: %s", e.Field, e.Reason, e.Detail)
}

// Unwrap maps the reason to its domain sentinel.
func (e *Error) Unwrap() error { return reasonSentinels[e.Reason] }

func newError(name string, reason Reason, format string, args ...any) *Error {
	return &Error{Field: name, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
