package errors

import (
	stdErrors "errors"
	"fmt"
)

// ValidationError rejects an input before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError (even when wrapped).
func IsValidation(err error) bool {
	var vErr *ValidationError
	return stdErrors.As(err, &vErr)
}
