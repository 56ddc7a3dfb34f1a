// Package library builds and refreshes book records from external metadata
// sources.
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/lepinkainen/bookshelf/internal/cover"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

// ErrBookNotFound is returned when a book id does not exist.
var ErrBookNotFound = fmt.Errorf("no such book: %w", book.ErrNotFound)

// Book is a stored book record. There is at most one per ISBN.
type Book struct {
	ID          int64      `yaml:"id"`
	Title       string     `yaml:"title"`
	PageCount   *int       `yaml:"page_count,omitempty"`
	ISBN        string     `yaml:"isbn"`
	ReleaseDate *time.Time `yaml:"release_date,omitempty"`
	Excerpt     *string    `yaml:"excerpt,omitempty"`
	AuthorIDs   []int64    `yaml:"author_ids,omitempty"`
	PublisherID *int64     `yaml:"publisher_id,omitempty"`
	CoverID     *int64     `yaml:"cover_id,omitempty"`
	UpdatedAt   time.Time  `yaml:"updated_at"`
}

// HasCover reports whether a cover is attached.
func (b *Book) HasCover() bool { return b.CoverID != nil }

// BookStore persists books.
type BookStore interface {
	// FindBookByISBN returns the book with this ISBN, if any.
	FindBookByISBN(ctx context.Context, isbn string) (*Book, bool, error)
	// GetBook returns the book with this id or ErrBookNotFound.
	GetBook(ctx context.Context, id int64) (*Book, error)
	// SaveBook inserts a book with ID 0 and updates any other. Returns the id.
	SaveBook(ctx context.Context, b *Book) (int64, error)
	// BookIDsMissingCover lists the ids of books without a cover, ascending.
	BookIDsMissingCover(ctx context.Context) ([]int64, error)
}

// TermResolver finds or creates reference terms.
type TermResolver interface {
	ResolveOrCreate(ctx context.Context, category terms.Category, name string) (int64, error)
	ResolveAll(ctx context.Context, category terms.Category, names []string) ([]int64, error)
}

// CoverFetcher finds the cover for an ISBN.
type CoverFetcher interface {
	FetchCover(ctx context.Context, isbn string) (*cover.Asset, error)
}

// Outcome labels reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
)

// Observer receives pipeline outcomes, for metrics.
type Observer interface {
	ObserveSource(source, outcome string)
	ObserveCover(outcome string)
	ObserveUpsert(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSource(string, string) {}
func (nopObserver) ObserveCover(string)          {}
func (nopObserver) ObserveUpsert(string)         {}
