package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/bookshelf/internal/terms"
)

// FindTerm returns the id of the term with exactly this category and name.
func (s *SQLiteStore) FindTerm(ctx context.Context, category terms.Category, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM terms WHERE category = ? AND name = ?", string(category), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query term: %w", err)
	}
	return id, true, nil
}

// CreateTerm inserts the term unless it exists and returns its id. The
// UNIQUE(category, name) constraint makes concurrent creates converge.
func (s *SQLiteStore) CreateTerm(ctx context.Context, category terms.Category, name string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO terms (category, name) VALUES (?, ?) ON CONFLICT (category, name) DO NOTHING",
			string(category), name); err != nil {
			return fmt.Errorf("failed to insert term: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM terms WHERE category = ? AND name = ?", string(category), name).Scan(&id); err != nil {
			return fmt.Errorf("failed to read term id: %w", err)
		}
		return nil
	})
	return id, err
}

// GetTerm returns a term by id.
func (s *SQLiteStore) GetTerm(ctx context.Context, id int64) (*terms.Term, error) {
	var (
		t        terms.Term
		category string
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, category, name FROM terms WHERE id = ?", id).
		Scan(&t.ID, &category, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %d: %w", id, ErrTermNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query term %d: %w", id, err)
	}
	t.Category = terms.Category(category)
	return &t, nil
}

// ErrTermNotFound is returned by GetTerm for unknown ids.
var ErrTermNotFound = errors.New("term not found")
