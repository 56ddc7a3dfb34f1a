package book

import "errors"

var (
	// ErrNotFound is returned when a source, cover host or store has no data
	// for the requested identifier. It is an expected outcome.
	ErrNotFound = errors.New("book not found")

	// ErrInvalidISBN is returned when the provided ISBN is empty.
	ErrInvalidISBN = errors.New("invalid ISBN")
)
