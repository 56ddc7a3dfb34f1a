package datastore

import (
	"github.com/lepinkainen/bookshelf/internal/activity"
	"github.com/lepinkainen/bookshelf/internal/cover"
	"github.com/lepinkainen/bookshelf/internal/library"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

// Store defines the interface for local SQLite storage
type Store interface {
	// Connect establishes a connection to the data store and creates the schema
	Connect() error

	// CreateTable creates a new table with the given schema if it doesn't exist
	CreateTable(schema string) error

	// Close closes the connection to the data store
	Close() error
}

// Compile-time checks for every collaborator the SQLite store backs.
var (
	_ Store             = (*SQLiteStore)(nil)
	_ library.BookStore = (*SQLiteStore)(nil)
	_ terms.Store       = (*SQLiteStore)(nil)
	_ cover.Store       = (*SQLiteStore)(nil)
	_ cover.FileStore   = (*SQLiteStore)(nil)
	_ activity.Store    = (*SQLiteStore)(nil)
)
