package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/lepinkainen/bookshelf/internal/library"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

// MaxQueryLimit is the largest page the list queries return.
const MaxQueryLimit = 100

// ErrLimitExceeded is returned when a list query asks for more than MaxQueryLimit rows.
var ErrLimitExceeded = fmt.Errorf("exceeded maximum query limit: %d", MaxQueryLimit)

// Page is one window of a list query together with the unpaged total.
type Page[T any] struct {
	Total int `yaml:"total"`
	Items []T `yaml:"items"`
}

func checkRange(offset, limit int) error {
	if limit > MaxQueryLimit {
		return ErrLimitExceeded
	}
	if offset < 0 || limit < 0 {
		return errors.New("offset and limit must not be negative")
	}
	return nil
}

// ListBooks returns books ordered by id.
func (s *SQLiteStore) ListBooks(ctx context.Context, offset, limit int) (*Page[library.Book], error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}

	page := &Page[library.Book]{Items: []library.Book{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bookColumns+" FROM books ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		page.Items = append(page.Items, *b)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Authors are loaded after the cursor is closed; the pool has one connection
	for i := range page.Items {
		if page.Items[i].AuthorIDs, err = s.authorIDs(ctx, page.Items[i].ID); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// ListTerms returns terms ordered by id. An empty category lists all of them.
func (s *SQLiteStore) ListTerms(ctx context.Context, category terms.Category, offset, limit int) (*Page[terms.Term], error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}

	where, args := "", []any{}
	if category != "" {
		where, args = " WHERE category = ?", append(args, string(category))
	}

	page := &Page[terms.Term]{Items: []terms.Term{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM terms"+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count terms: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, category, name FROM terms"+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			t   terms.Term
			cat string
		)
		if err := rows.Scan(&t.ID, &cat, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		t.Category = terms.Category(cat)
		page.Items = append(page.Items, t)
	}
	return page, rows.Err()
}
