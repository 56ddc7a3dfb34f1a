package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/lepinkainen/bookshelf/internal/cover"
	"github.com/lepinkainen/bookshelf/internal/fileutil"
)

// uriScheme prefixes file URIs; the path part is relative to assetsDir.
const uriScheme = "public://"

// FindCoverByISBN returns the cover stored for isbn, if any.
func (s *SQLiteStore) FindCoverByISBN(ctx context.Context, isbn string) (*cover.Asset, bool, error) {
	var a cover.Asset
	err := s.db.QueryRowContext(ctx, `SELECT c.id, c.isbn, c.file_id, f.uri
		FROM covers c JOIN files f ON f.id = c.file_id
		WHERE c.isbn = ?`, isbn).Scan(&a.ID, &a.ISBN, &a.FileID, &a.URI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cover %s: %w", isbn, err)
	}
	return &a, true, nil
}

// CreateCover records file as the cover for isbn.
func (s *SQLiteStore) CreateCover(ctx context.Context, isbn string, file *cover.File) (*cover.Asset, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO covers (isbn, file_id) VALUES (?, ?)", isbn, file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert cover %s: %w", isbn, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read cover id: %w", err)
	}
	return &cover.Asset{ID: id, ISBN: isbn, FileID: file.ID, URI: file.URI}, nil
}

// WriteFile stores data as assetsDir/dir/filename and records it as a
// temporary file. Existing files are never overwritten.
func (s *SQLiteStore) WriteFile(ctx context.Context, data []byte, dir, filename string) (*cover.File, error) {
	filename = fileutil.SanitizeFilename(filename)
	localPath, err := fileutil.JoinWithin(s.assetsDir, dir, filename)
	if err != nil {
		return nil, err
	}

	written, err := fileutil.WriteFileWithOverwrite(localPath, data, 0644, false)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if !written {
		return nil, fmt.Errorf("failed to write %s: %w", localPath, os.ErrExist)
	}

	uri := uriScheme + path.Join(dir, filename)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO files (uri, path, size, permanent, created_at) VALUES (?, ?, ?, 0, ?)",
		uri, localPath, len(data), time.Now().UTC().Format(timestampLayout))
	if err != nil {
		_ = os.Remove(localPath)
		return nil, fmt.Errorf("failed to insert file %s: %w", uri, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read file id: %w", err)
	}
	return &cover.File{ID: id, URI: uri}, nil
}

// SetPermanent keeps the file from being removed by PurgeTemporaryFiles.
func (s *SQLiteStore) SetPermanent(ctx context.Context, fileID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE files SET permanent = 1 WHERE id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to mark file %d permanent: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %d does not exist", fileID)
	}
	return nil
}

// GetFile returns a file record by id.
func (s *SQLiteStore) GetFile(ctx context.Context, id int64) (*cover.File, error) {
	var (
		f         cover.File
		permanent int
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, uri, permanent FROM files WHERE id = ?", id).
		Scan(&f.ID, &f.URI, &permanent)
	if err != nil {
		return nil, fmt.Errorf("failed to query file %d: %w", id, err)
	}
	f.Permanent = permanent != 0
	return &f, nil
}

// PurgeTemporaryFiles deletes files that were never made permanent and are
// older than maxAge, on disk and in the database. Returns how many went.
func (s *SQLiteStore) PurgeTemporaryFiles(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UTC().Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path FROM files WHERE permanent = 0 AND created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query temporary files: %w", err)
	}

	type tempFile struct {
		id   int64
		path string
	}
	var files []tempFile
	for rows.Next() {
		var f tempFile
		if err := rows.Scan(&f.id, &f.path); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	purged := 0
	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return purged, fmt.Errorf("failed to remove %s: %w", f.path, err)
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", f.id); err != nil {
			return purged, fmt.Errorf("failed to delete file %d: %w", f.id, err)
		}
		purged++
	}
	return purged, nil
}
