package schema

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch reports an embedding whose length disagrees with the
// dimension already established for a store or embedder.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ValidationError reports rejected input. It carries the field that failed so
// callers can surface it without parsing the message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
