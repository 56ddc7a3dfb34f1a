package datastore

// Dates are stored as TEXT (YYYY-MM-DD, RFC 3339 for timestamps) so the
// driver never converts them on scan.

const termsSchema = `
CREATE TABLE IF NOT EXISTS terms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	UNIQUE (category, name)
);
`

const filesSchema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uri TEXT NOT NULL UNIQUE,
	path TEXT NOT NULL,
	size INTEGER NOT NULL,
	permanent INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
`

const coversSchema = `
CREATE TABLE IF NOT EXISTS covers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	isbn TEXT NOT NULL UNIQUE,
	file_id INTEGER NOT NULL REFERENCES files(id)
);
`

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	isbn TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	page_count INTEGER,
	release_date TEXT,
	excerpt TEXT,
	publisher_id INTEGER REFERENCES terms(id),
	cover_id INTEGER REFERENCES covers(id),
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_cover_id ON books(cover_id);

CREATE TABLE IF NOT EXISTS book_authors (
	book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	term_id INTEGER NOT NULL REFERENCES terms(id),
	PRIMARY KEY (book_id, position)
);
`

const activitiesSchema = `
CREATE TABLE IF NOT EXISTS activities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL REFERENCES books(id),
	title TEXT NOT NULL,
	status_id INTEGER NOT NULL REFERENCES terms(id),
	start_date TEXT NOT NULL,
	end_date TEXT
);
`

// allSchemas in dependency order.
var allSchemas = []string{
	termsSchema,
	filesSchema,
	coversSchema,
	booksSchema,
	activitiesSchema,
}
