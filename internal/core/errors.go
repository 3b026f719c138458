package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR KINDS
// The pipelines distinguish two failure severities. Hard failures (unknown
// schema, missing metadata, unsupported data type) are plain wrapped errors
// and abort the current event. InvalidValueError is the recoverable kind:
// the per-field loops catch exactly it, log, and move on to the next field.
// =============================================================================

// InvalidValueError reports a specific value that could not be translated
// into the other system's representation.
type InvalidValueError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for field %s: %s", e.Value, e.Field, e.Reason)
}

// IsInvalidValue reports whether err is, or wraps, an InvalidValueError.
func IsInvalidValue(err error) bool {
	var ive *InvalidValueError
	return errors.As(err, &ive)
}
