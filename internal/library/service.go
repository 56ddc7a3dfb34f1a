package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/isbn"
	"github.com/lepinkainen/bookshelf/internal/terms"
	"golang.org/x/sync/errgroup"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver reports outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithConcurrentFetch queries the sources in parallel.
func WithConcurrentFetch(enabled bool) Option {
	return func(s *Service) { s.concurrent = enabled }
}

// WithClock replaces time.Now for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service creates and refreshes books.
type Service struct {
	sources    []book.Source
	merger     book.Merger
	books      BookStore
	terms      TermResolver
	covers     CoverFetcher
	logger     *slog.Logger
	observer   Observer
	concurrent bool
	now        func() time.Time
}

// NewService creates a Service. covers may be nil to skip cover lookup.
func NewService(sources []book.Source, books BookStore, resolver TermResolver, covers CoverFetcher, opts ...Option) *Service {
	s := &Service{
		sources:  sources,
		merger:   book.NewPriorityMerger(),
		books:    books,
		terms:    resolver,
		covers:   covers,
		logger:   slog.Default(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOrUpdateBook fetches metadata for rawISBN from every source, merges it
// and creates or refreshes the book with that ISBN. Returns the book id.
//
// When no source has data the error wraps book.ErrNotFound and nothing is
// written. Terms and cover files created before a later failure are kept.
func (s *Service) AddOrUpdateBook(ctx context.Context, rawISBN string) (int64, error) {
	requested := isbn.Normalize(rawISBN)
	if requested == "" {
		return 0, apperrors.NewValidationError("isbn", "must not be blank")
	}

	results := s.fetchAll(ctx, requested)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	merged := s.merger.Merge(results)
	if len(results) == 0 || merged.IsEmpty() {
		s.observer.ObserveUpsert(OutcomeNotFound)
		return 0, fmt.Errorf("no source has data for ISBN %s: %w", requested, book.ErrNotFound)
	}

	record, err := s.loadOrNew(ctx, requested, merged)
	if err != nil {
		s.observer.ObserveUpsert(OutcomeError)
		return 0, err
	}
	created := record.ID == 0

	applyScalars(record, merged, requested)

	if err := s.resolveTerms(ctx, record, merged); err != nil {
		s.observer.ObserveUpsert(OutcomeError)
		return 0, err
	}

	s.attachCover(ctx, record)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	record.UpdatedAt = s.now().UTC()
	id, err := s.books.SaveBook(ctx, record)
	if err != nil {
		s.observer.ObserveUpsert(OutcomeError)
		return 0, fmt.Errorf("saving book %s: %w", record.ISBN, err)
	}

	if created {
		s.logger.Info("Book created", "id", id, "isbn", record.ISBN, "title", record.Title)
	} else {
		s.logger.Info("Book updated", "id", id, "isbn", record.ISBN, "title", record.Title)
	}
	s.observer.ObserveUpsert(OutcomeOK)
	return id, nil
}

// fetchAll queries every source and returns the ones that had data, in
// source order. Failures only reduce the result set.
func (s *Service) fetchAll(ctx context.Context, isbn string) []book.SourceResult {
	slots := make([]*book.SourceResult, len(s.sources))

	if s.concurrent && len(s.sources) > 1 {
		var g errgroup.Group
		for i, src := range s.sources {
			g.Go(func() error {
				slots[i] = s.fetchOne(ctx, src, isbn)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, src := range s.sources {
			slots[i] = s.fetchOne(ctx, src, isbn)
		}
	}

	results := make([]book.SourceResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

func (s *Service) fetchOne(ctx context.Context, src book.Source, isbn string) *book.SourceResult {
	fields, err := src.FetchAndNormalize(ctx, isbn)
	switch {
	case err == nil && !fields.IsEmpty():
		s.logger.Debug("Source returned data", "source", src.Name(), "isbn", isbn)
		s.observer.ObserveSource(src.Name(), OutcomeOK)
		return &book.SourceResult{Data: fields, Source: src.Name(), Priority: src.Priority()}
	case err == nil, errors.Is(err, book.ErrNotFound):
		s.logger.Debug("Source has no data", "source", src.Name(), "isbn", isbn, "error", err)
		s.observer.ObserveSource(src.Name(), OutcomeNotFound)
	case apperrors.IsTransient(err):
		s.logger.Warn("Source request failed", "source", src.Name(), "isbn", isbn, "error", err)
		s.observer.ObserveSource(src.Name(), OutcomeTransient)
	default:
		s.logger.Warn("Source returned an error", "source", src.Name(), "isbn", isbn, "error", err)
		s.observer.ObserveSource(src.Name(), OutcomeError)
	}
	return nil
}

// loadOrNew finds the book by the merged ISBN, then by the requested one
// and its ISBN-13 form.
func (s *Service) loadOrNew(ctx context.Context, requested string, merged *book.Fields) (*Book, error) {
	key := requested
	reported := merged.ISBN != nil && *merged.ISBN != ""
	if reported {
		key = *merged.ISBN
	}

	for _, candidate := range uniqueStrings(key, requested, isbn.ToISBN13(requested)) {
		existing, found, err := s.books.FindBookByISBN(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("looking up book %s: %w", candidate, err)
		}
		if found {
			if reported {
				existing.ISBN = key
			}
			return existing, nil
		}
	}
	return &Book{ISBN: key}, nil
}

// applyScalars copies present scalar fields. The title falls back to the
// requested ISBN so a record never has an empty title.
func applyScalars(record *Book, merged *book.Fields, requested string) {
	if merged.Title != nil && *merged.Title != "" {
		record.Title = *merged.Title
	} else {
		record.Title = requested
	}
	if merged.PageCount != nil {
		record.PageCount = merged.PageCount
	}
	if merged.ReleaseDate != nil {
		record.ReleaseDate = merged.ReleaseDate
	}
	if merged.Excerpt != nil {
		record.Excerpt = merged.Excerpt
	}
}

func (s *Service) resolveTerms(ctx context.Context, record *Book, merged *book.Fields) error {
	if merged.Publisher != nil {
		id, err := s.terms.ResolveOrCreate(ctx, terms.CategoryPublisher, *merged.Publisher)
		if err != nil {
			return fmt.Errorf("resolving publisher: %w", err)
		}
		record.PublisherID = &id
	}

	if merged.Authors != nil {
		ids, err := s.terms.ResolveAll(ctx, terms.CategoryAuthor, merged.Authors)
		if err != nil {
			return fmt.Errorf("resolving authors: %w", err)
		}
		record.AuthorIDs = ids
	}
	return nil
}

// attachCover sets the cover if one can be found. Failures leave the
// current cover alone.
func (s *Service) attachCover(ctx context.Context, record *Book) bool {
	if s.covers == nil {
		return false
	}

	asset, err := s.covers.FetchCover(ctx, record.ISBN)
	switch {
	case err == nil:
		record.CoverID = &asset.ID
		s.observer.ObserveCover(OutcomeOK)
		return true
	case errors.Is(err, book.ErrNotFound):
		s.logger.Debug("No cover found", "isbn", record.ISBN)
		s.observer.ObserveCover(OutcomeNotFound)
	default:
		s.logger.Warn("Cover lookup failed", "isbn", record.ISBN, "error", err)
		s.observer.ObserveCover(OutcomeError)
	}
	return false
}

// Ping checks every source and returns their errors by name. A nil map
// value means the source answered.
func (s *Service) Ping(ctx context.Context) map[string]error {
	status := make(map[string]error, len(s.sources))
	for _, src := range s.sources {
		status[src.Name()] = src.Ping(ctx)
	}
	return status
}

// Sources returns the configured source names in priority order.
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

// uniqueStrings drops empty and repeated values, keeping the first occurrence.
func uniqueStrings(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
