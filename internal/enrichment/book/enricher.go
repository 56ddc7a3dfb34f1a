// Package book defines the canonical book metadata schema, the contract every
// external metadata source implements, and the priority merge that reconciles
// their results.
package book

import (
	"context"
	"time"
)

// Source defines the interface for fetching book information from an external
// metadata API. Implementations handle their own transport, rate limiting and
// mapping to the canonical Fields schema.
type Source interface {
	// Name returns the human-readable name of the source (e.g., "OpenLibrary").
	Name() string

	// Priority returns the priority when merging data. Lower values indicate
	// higher priority.
	Priority() int

	// Ping tests the connection to the source.
	Ping(ctx context.Context) error

	// FetchRaw issues a single request for isbn.
	// Returns an error wrapping ErrNotFound when the source has no record,
	// or a *errors.TransientError for transport and protocol failures.
	FetchRaw(ctx context.Context, isbn string) (RawPayload, error)

	// Normalize maps a raw payload to the canonical schema. Absent optional
	// fields stay nil.
	Normalize(raw RawPayload) (*Fields, error)

	// FetchAndNormalize composes FetchRaw and Normalize.
	FetchAndNormalize(ctx context.Context, isbn string) (*Fields, error)
}

// RawPayload is an undecoded response body together with the ISBN it answers.
type RawPayload struct {
	ISBN string
	Body []byte
}

// Fields contains book metadata in the source-agnostic schema.
// Pointer fields distinguish "not present" from a zero value, so a page count
// of 0 is data and a nil PageCount is not. Authors uses nil for absent.
type Fields struct {
	// Title is the main title of the book.
	Title *string

	// PageCount is the number of pages (>= 0).
	PageCount *int

	// Authors are the author display names in credit order.
	Authors []string

	// Publisher is the publishing company name.
	Publisher *string

	// ISBN is the canonical identifier reported by the source.
	ISBN *string

	// ReleaseDate is the publication date at UTC midnight.
	ReleaseDate *time.Time

	// Excerpt is the description or blurb.
	Excerpt *string
}

// IsEmpty reports whether no field is present.
func (f *Fields) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Title == nil &&
		f.PageCount == nil &&
		f.Authors == nil &&
		f.Publisher == nil &&
		f.ISBN == nil &&
		f.ReleaseDate == nil &&
		f.Excerpt == nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// DatePtr returns a pointer to the UTC calendar date of t.
func DatePtr(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
