package domain

import "errors"

var (
	// ErrInvalidSchema signals an invalid schema description.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrMalformedDocument signals a raw record that is not a JSON object.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidQuery signals an unusable search query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrFieldMissing signals an absent (or null) field value.
	ErrFieldMissing = errors.New("field missing")
	// ErrFieldTypeMismatch signals a value of the wrong JSON kind or numeric domain.
	ErrFieldTypeMismatch = errors.New("field type mismatch")
	// ErrFieldParse signals a value of the right kind that failed to parse.
	ErrFieldParse = errors.New("field parse failure")
	// ErrFieldUnsupported signals a field type that cannot be populated.
	ErrFieldUnsupported = errors.New("field type unsupported")

	// ErrSourceUnavailable signals a source reader that cannot start iterating.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceRead signals a failure while pulling a batch mid-run.
	ErrSourceRead = errors.New("source read failed")
	// ErrWriterOpen signals that the index writer could not be constructed.
	ErrWriterOpen = errors.New("index writer open failed")
	// ErrWriteFailed signals buffered documents the index refused mid-run.
	ErrWriteFailed = errors.New("index write failed")
	// ErrCommitFailed signals a failed final commit.
	ErrCommitFailed = errors.New("commit failed")
	// ErrTargetNotEmpty signals a non-empty target index without append permission.
	ErrTargetNotEmpty = errors.New("target index is not empty")
)
