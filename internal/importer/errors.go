package importer

import (
	"errors"
	"fmt"
)

// File-level errors. They are returned before any chunk is scheduled.
var (
	ErrFileNotFound   = errors.New("import file not found")
	ErrFileUnreadable = errors.New("import file unreadable")
	ErrHeaderMissing  = errors.New("import file header missing")
)

// Row-level errors. Rows failing with these are logged and dropped.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrFieldTooLong         = errors.New("field too long")
	ErrInvalidText          = errors.New("invalid text")
)

// ErrUnresolvedReference means a record names a reference that has no id in
// the mapping handed to the upsert. Resolution always runs first on the same
// names, so this signals a bug rather than bad input.
var ErrUnresolvedReference = errors.New("unresolved reference")

// CastError reports a numeric field whose value could not be converted.
type CastError struct {
	Field string
	Value string
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *CastError) Unwrap() error {
	return e.Err
}

// ChunkError wraps a storage failure with the chunk that caused it.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// rejectReason maps a row error to the label used in logs and metrics.
func rejectReason(err error) string {
	var castErr *CastError
	switch {
	case errors.Is(err, ErrMissingRequiredField):
		return "missing_required_field"
	case errors.Is(err, ErrFieldTooLong):
		return "field_too_long"
	case errors.Is(err, ErrInvalidText):
		return "invalid_text"
	case errors.As(err, &castErr):
		return "cast_error"
	default:
		return "malformed_line"
	}
}
