package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lepinkainen/bookshelf/internal/activity"
)

// CreateActivity inserts a and returns its id.
func (s *SQLiteStore) CreateActivity(ctx context.Context, a *activity.Activity) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO activities (book_id, title, status_id, start_date, end_date) VALUES (?, ?, ?, ?, ?)",
		a.BookID, a.Title, a.StatusID, a.StartDate.UTC().Format(dateLayout), nullableDate(a.EndDate))
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read activity id: %w", err)
	}
	a.ID = id
	return id, nil
}

// GetActivity returns the activity or activity.ErrNotFound.
func (s *SQLiteStore) GetActivity(ctx context.Context, id int64) (*activity.Activity, error) {
	var (
		a         activity.Activity
		startDate string
		endDate   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, book_id, title, status_id, start_date, end_date FROM activities WHERE id = ?", id).
		Scan(&a.ID, &a.BookID, &a.Title, &a.StatusID, &startDate, &endDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %d: %w", id, activity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query activity %d: %w", id, err)
	}

	if a.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return nil, fmt.Errorf("parsing start date of activity %d: %w", id, err)
	}
	if endDate.Valid {
		d, err := time.Parse(dateLayout, endDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing end date of activity %d: %w", id, err)
		}
		a.EndDate = &d
	}
	return &a, nil
}

// UpdateActivity writes every field of a.
func (s *SQLiteStore) UpdateActivity(ctx context.Context, a *activity.Activity) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE activities SET book_id = ?, title = ?, status_id = ?, start_date = ?, end_date = ? WHERE id = ?",
		a.BookID, a.Title, a.StatusID, a.StartDate.UTC().Format(dateLayout), nullableDate(a.EndDate), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update activity %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activity %d: %w", a.ID, activity.ErrNotFound)
	}
	return nil
}
