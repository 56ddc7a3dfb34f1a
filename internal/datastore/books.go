package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lepinkainen/bookshelf/internal/library"
)

const (
	dateLayout = time.DateOnly
	// Fixed width so timestamps compare correctly as text
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const bookColumns = "id, isbn, title, page_count, release_date, excerpt, publisher_id, cover_id, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*library.Book, error) {
	var (
		b           library.Book
		pageCount   sql.NullInt64
		releaseDate sql.NullString
		excerpt     sql.NullString
		publisherID sql.NullInt64
		coverID     sql.NullInt64
		updatedAt   string
	)
	if err := row.Scan(&b.ID, &b.ISBN, &b.Title, &pageCount, &releaseDate, &excerpt, &publisherID, &coverID, &updatedAt); err != nil {
		return nil, err
	}

	if pageCount.Valid {
		n := int(pageCount.Int64)
		b.PageCount = &n
	}
	if releaseDate.Valid {
		d, err := time.Parse(dateLayout, releaseDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing release date of book %d: %w", b.ID, err)
		}
		b.ReleaseDate = &d
	}
	if excerpt.Valid {
		b.Excerpt = &excerpt.String
	}
	b.PublisherID = nullableID(publisherID)
	b.CoverID = nullableID(coverID)

	t, err := time.Parse(timestampLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at of book %d: %w", b.ID, err)
	}
	b.UpdatedAt = t
	return &b, nil
}

// FindBookByISBN returns the book with this ISBN, if any.
func (s *SQLiteStore) FindBookByISBN(ctx context.Context, isbn string) (*library.Book, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE isbn = ?", isbn)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query book %s: %w", isbn, err)
	}

	if b.AuthorIDs, err = s.authorIDs(ctx, b.ID); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// GetBook returns the book with this id or library.ErrBookNotFound.
func (s *SQLiteStore) GetBook(ctx context.Context, id int64) (*library.Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, library.ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query book %d: %w", id, err)
	}

	if b.AuthorIDs, err = s.authorIDs(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// SaveBook inserts a book with ID 0 and updates any other, replacing its
// author list. Returns the id.
func (s *SQLiteStore) SaveBook(ctx context.Context, b *library.Book) (int64, error) {
	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	values := []any{
		b.ISBN,
		b.Title,
		nullableInt(b.PageCount),
		nullableDate(b.ReleaseDate),
		nullableString(b.Excerpt),
		nullableInt64(b.PublisherID),
		nullableInt64(b.CoverID),
		updatedAt.UTC().Format(timestampLayout),
	}

	id := b.ID
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx, `INSERT INTO books
				(isbn, title, page_count, release_date, excerpt, publisher_id, cover_id, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, values...)
			if err != nil {
				return fmt.Errorf("failed to insert book %s: %w", b.ISBN, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read book id: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx, `UPDATE books SET
				isbn = ?, title = ?, page_count = ?, release_date = ?, excerpt = ?,
				publisher_id = ?, cover_id = ?, updated_at = ?
				WHERE id = ?`, append(values, id)...)
			if err != nil {
				return fmt.Errorf("failed to update book %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("book %d: %w", id, library.ErrBookNotFound)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM book_authors WHERE book_id = ?", id); err != nil {
				return fmt.Errorf("failed to clear authors of book %d: %w", id, err)
			}
		}

		rows := make([][]any, 0, len(b.AuthorIDs))
		for pos, termID := range b.AuthorIDs {
			rows = append(rows, []any{id, pos, termID})
		}
		return insertRows(ctx, tx, "book_authors", []string{"book_id", "position", "term_id"}, rows)
	})
	if err != nil {
		return 0, err
	}

	b.ID = id
	return id, nil
}

// BookIDsMissingCover lists the ids of books without a cover, ascending.
func (s *SQLiteStore) BookIDsMissingCover(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM books WHERE cover_id IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query books without cover: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) authorIDs(ctx context.Context, bookID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT term_id FROM book_authors WHERE book_id = ? ORDER BY position", bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors of book %d: %w", bookID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan author id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(dateLayout)
}
