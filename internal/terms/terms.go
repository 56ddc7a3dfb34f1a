// Package terms resolves named reference entities (authors, publishers,
// reading statuses) to ids, creating them on first use.
package terms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// Category scopes a term name.
type Category string

const (
	CategoryAuthor    Category = "author"
	CategoryPublisher Category = "publisher"
	CategoryStatus    Category = "status"
)

// Term is a named reference entity.
type Term struct {
	ID       int64    `yaml:"id"`
	Category Category `yaml:"category"`
	Name     string   `yaml:"name"`
}

// Store persists terms.
type Store interface {
	// FindTerm returns the id of the term with exactly this category and name.
	FindTerm(ctx context.Context, category Category, name string) (id int64, found bool, err error)
	// CreateTerm persists a new term and returns its id.
	CreateTerm(ctx context.Context, category Category, name string) (int64, error)
}

// Resolver implements find-or-create over a Store.
//
// Matching is exact: "Herman Melville" and "herman melville" are two terms.
// Lookup and creation are separate store calls, so two callers resolving the
// same new name concurrently can both create it. Stores that need strict
// dedup must enforce uniqueness themselves.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default().
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// ResolveOrCreate returns the id of the (category, name) term, creating it if
// it does not exist. A blank name is a validation error and touches nothing.
func (r *Resolver) ResolveOrCreate(ctx context.Context, category Category, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, apperrors.NewValidationError(string(category)+" name", "must not be blank")
	}

	id, found, err := r.store.FindTerm(ctx, category, name)
	if err != nil {
		return 0, fmt.Errorf("looking up %s %q: %w", category, name, err)
	}
	if found {
		return id, nil
	}

	id, err = r.store.CreateTerm(ctx, category, name)
	if err != nil {
		return 0, fmt.Errorf("creating %s %q: %w", category, name, err)
	}
	r.logger.Debug("Created term", "category", category, "name", name, "id", id)
	return id, nil
}

// ResolveAll resolves every name in order. The returned ids line up with names.
func (r *Resolver) ResolveAll(ctx context.Context, category Category, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := r.ResolveOrCreate(ctx, category, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
