package errors

import (
	stdErrors "errors"
	"fmt"
)

// TransientError is a recoverable failure talking to an external source or
// image host. Callers treat it like "no data" but log it at a higher level.
type TransientError struct {
	Source string
	Code   int // HTTP status when the host answered, 0 for transport failures
	Err    error
}

func (e *TransientError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Source, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a transient failure of source.
func NewTransientError(source string, code int, err error) *TransientError {
	if err == nil {
		err = stdErrors.New("unknown failure")
	}
	return &TransientError{Source: source, Code: code, Err: err}
}

// IsTransient reports whether err is a TransientError (even when wrapped).
func IsTransient(err error) bool {
	var tErr *TransientError
	return stdErrors.As(err, &tErr)
}

// AsTransient returns the TransientError inside err, if any.
func AsTransient(err error) (*TransientError, bool) {
	var tErr *TransientError
	if stdErrors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}
