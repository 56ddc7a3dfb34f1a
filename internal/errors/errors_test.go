package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestTransientError(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := NewTransientError("Google Books", 0, cause)

	expected := "Google Books: connection refused"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsTransient(err) {
		t.Fatalf("IsTransient returned false for TransientError")
	}

	if !stdErrors.Is(err, cause) {
		t.Fatalf("TransientError does not unwrap to its cause")
	}
}

func TestTransientError_WithStatusCode(t *testing.T) {
	err := NewTransientError("OpenLibrary", 503, stdErrors.New("unexpected status"))

	expected := "OpenLibrary: HTTP 503: unexpected status"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestTransientError_NilCause(t *testing.T) {
	err := NewTransientError("host", 0, nil)
	if err.Err == nil {
		t.Fatalf("expected a placeholder cause for nil error")
	}
}

func TestTransientError_Wrapped(t *testing.T) {
	err := fmt.Errorf("fetching: %w", NewTransientError("OpenLibrary", 500, stdErrors.New("boom")))

	if !IsTransient(err) {
		t.Fatalf("IsTransient returned false for wrapped TransientError")
	}

	tErr, ok := AsTransient(err)
	if !ok {
		t.Fatalf("AsTransient returned false for wrapped TransientError")
	}
	if tErr.Code != 500 {
		t.Fatalf("Code = %d, want 500", tErr.Code)
	}
}

func TestAsTransient_OtherError(t *testing.T) {
	if _, ok := AsTransient(stdErrors.New("plain")); ok {
		t.Fatalf("AsTransient returned true for a plain error")
	}
	if IsTransient(nil) {
		t.Fatalf("IsTransient returned true for nil")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("name", "must not be blank")

	expected := "invalid name: must not be blank"
	if err.Error() != expected {
		t.Fatalf("Error message = %q, want %q", err.Error(), expected)
	}

	if !IsValidation(err) {
		t.Fatalf("IsValidation returned false for ValidationError")
	}

	wrapped := stdErrors.Join(err, stdErrors.New("additional context"))
	if !IsValidation(wrapped) {
		t.Fatalf("IsValidation returned false for wrapped ValidationError")
	}

	if IsTransient(err) {
		t.Fatalf("ValidationError must not be reported as transient")
	}
}
