package enrichers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/isbn"
)

const (
	openLibraryBaseURL  = "https://openlibrary.org"
	openLibraryName     = "OpenLibrary"
	openLibraryPriority = 1
	openLibraryTable    = "openlibrary_cache"
)

// OpenLibrary implements book.Source for the Open Library books API.
type OpenLibrary struct {
	httpSource
}

// Compile-time check that OpenLibrary implements book.Source.
var _ book.Source = (*OpenLibrary)(nil)

// NewOpenLibrary creates an Open Library client.
func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{
		httpSource: newHTTPSource(openLibraryName, openLibraryBaseURL, openLibraryTable, openLibraryPriority, opts),
	}
}

// Name returns the human-readable name of this source.
func (o *OpenLibrary) Name() string { return o.name }

// Priority returns the merge priority (lower = higher precedence).
func (o *OpenLibrary) Priority() int { return o.priority }

// Ping tests the connection to OpenLibrary API.
func (o *OpenLibrary) Ping(ctx context.Context) error {
	return o.ping(ctx, o.baseURL+"/search.json?q=test&limit=1")
}

// FetchRaw queries api/books?bibkeys=ISBN:{isbn}. A response without the
// "ISBN:{isbn}" key is not found.
func (o *OpenLibrary) FetchRaw(ctx context.Context, rawISBN string) (book.RawPayload, error) {
	normalized := isbn.Normalize(rawISBN)
	if normalized == "" {
		return book.RawPayload{}, book.ErrInvalidISBN
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", o.baseURL, url.QueryEscape(bibKey(normalized)))
	return o.fetch(ctx, normalized, u, func(body []byte) (bool, error) {
		var resp map[string]json.RawMessage
		if err := decodeJSON(body, &resp); err != nil {
			return false, err
		}
		_, ok := resp[bibKey(normalized)]
		return !ok, nil
	})
}

// Normalize maps the record under "ISBN:{isbn}" to the canonical schema.
func (o *OpenLibrary) Normalize(raw book.RawPayload) (*book.Fields, error) {
	var resp map[string]openLibraryBook
	if err := decodeJSON(raw.Body, &resp); err != nil {
		return nil, o.malformed(err)
	}

	record, ok := resp[bibKey(raw.ISBN)]
	if !ok {
		return nil, fmt.Errorf("%s has no record for ISBN %s: %w", o.name, raw.ISBN, book.ErrNotFound)
	}

	fields := &book.Fields{
		Title:       presentString(record.Title),
		PageCount:   record.NumberOfPages,
		ReleaseDate: parseReleaseDate(record.PublishDate),
	}

	for _, a := range record.Authors {
		if s := presentString(&a.Name); s != nil {
			fields.Authors = append(fields.Authors, *s)
		}
	}
	for _, p := range record.Publishers {
		if s := presentString(&p.Name); s != nil {
			fields.Publisher = s
			break
		}
	}
	for _, e := range record.Excerpts {
		if s := presentString(&e.Text); s != nil {
			fields.Excerpt = s
			break
		}
	}

	if isbn13 := firstNonEmpty(record.Identifiers.ISBN13); isbn13 != "" {
		fields.ISBN = book.StringPtr(isbn.Normalize(isbn13))
	} else if raw.ISBN != "" {
		fields.ISBN = book.StringPtr(raw.ISBN)
	}

	return fields, nil
}

// FetchAndNormalize fetches and maps the record for isbn.
func (o *OpenLibrary) FetchAndNormalize(ctx context.Context, isbn string) (*book.Fields, error) {
	raw, err := o.FetchRaw(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return o.Normalize(raw)
}

func bibKey(isbn string) string { return "ISBN:" + isbn }

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// openLibraryBook matches the jscmd=data record structure.
type openLibraryBook struct {
	Title         *string `json:"title"`
	NumberOfPages *int    `json:"number_of_pages"`
	PublishDate   string  `json:"publish_date"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	Excerpts []struct {
		Text string `json:"text"`
	} `json:"excerpts"`
	Identifiers struct {
		ISBN13 []string `json:"isbn_13"`
	} `json:"identifiers"`
}
