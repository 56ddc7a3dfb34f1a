// Package activity tracks reading sessions for books.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/bookshelf/internal/library"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

// ErrNotFound is returned for an unknown activity id.
var ErrNotFound = errors.New("activity not found")

// Status names, stored as terms in the status category.
const (
	StatusReading   = "Reading"
	StatusFinished  = "Finished"
	StatusAbandoned = "Abandoned"
)

// Activity is one reading of a book.
type Activity struct {
	ID        int64      `yaml:"id"`
	BookID    int64      `yaml:"book_id"`
	Title     string     `yaml:"title"`
	StatusID  int64      `yaml:"status_id"`
	StartDate time.Time  `yaml:"start_date"`
	EndDate   *time.Time `yaml:"end_date,omitempty"`
}

// Store persists activities.
type Store interface {
	CreateActivity(ctx context.Context, a *Activity) (int64, error)
	// GetActivity returns ErrNotFound for unknown ids.
	GetActivity(ctx context.Context, id int64) (*Activity, error)
	UpdateActivity(ctx context.Context, a *Activity) error
}

// Books looks up the book an activity refers to.
type Books interface {
	GetBook(ctx context.Context, id int64) (*library.Book, error)
}

// StatusResolver maps a status name to its term id.
type StatusResolver interface {
	ResolveOrCreate(ctx context.Context, category terms.Category, name string) (int64, error)
}

// Service starts and closes activities.
type Service struct {
	store    Store
	books    Books
	statuses StatusResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil logger uses slog.Default(), a nil
// clock time.Now.
func NewService(store Store, books Books, statuses StatusResolver, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, books: books, statuses: statuses, logger: logger, now: now}
}

// Start opens a new activity for bookID, titled after the book.
func (s *Service) Start(ctx context.Context, bookID int64) (*Activity, error) {
	b, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("loading book %d: %w", bookID, err)
	}

	statusID, err := s.statuses.ResolveOrCreate(ctx, terms.CategoryStatus, StatusReading)
	if err != nil {
		return nil, fmt.Errorf("resolving status %s: %w", StatusReading, err)
	}

	a := &Activity{
		BookID:    bookID,
		Title:     b.Title,
		StatusID:  statusID,
		StartDate: s.today(),
	}
	id, err := s.store.CreateActivity(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("creating activity for book %d: %w", bookID, err)
	}
	a.ID = id

	s.logger.Info("Activity started", "id", id, "book_id", bookID, "title", a.Title)
	return a, nil
}

// Finish closes the activity as finished today.
func (s *Service) Finish(ctx context.Context, id int64) (*Activity, error) {
	return s.close(ctx, id, StatusFinished)
}

// Abandon closes the activity as abandoned today.
func (s *Service) Abandon(ctx context.Context, id int64) (*Activity, error) {
	return s.close(ctx, id, StatusAbandoned)
}

func (s *Service) close(ctx context.Context, id int64, status string) (*Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}

	statusID, err := s.statuses.ResolveOrCreate(ctx, terms.CategoryStatus, status)
	if err != nil {
		return nil, fmt.Errorf("resolving status %s: %w", status, err)
	}

	// The title follows the book, in case it was refreshed since the start
	if b, err := s.books.GetBook(ctx, a.BookID); err == nil {
		a.Title = b.Title
	}

	today := s.today()
	a.StatusID = statusID
	a.EndDate = &today

	if err := s.store.UpdateActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("updating activity %d: %w", id, err)
	}

	s.logger.Info("Activity updated", "id", id, "status", status, "title", a.Title)
	return a, nil
}

// today is the current calendar date at UTC midnight.
func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
