package enrichers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/isbn"
)

const (
	googleBooksBaseURL  = "https://www.googleapis.com/books/v1"
	googleBooksName     = "Google Books"
	googleBooksPriority = 0
	googleBooksTable    = "googlebooks_cache"
)

// GoogleBooks implements book.Source for the Google Books volumes API.
// It is the primary source: its fields win every merge.
type GoogleBooks struct {
	httpSource
	apiKey string
}

// Compile-time check that GoogleBooks implements book.Source.
var _ book.Source = (*GoogleBooks)(nil)

// NewGoogleBooks creates a Google Books client. apiKey may be empty.
func NewGoogleBooks(apiKey string, opts ...Option) *GoogleBooks {
	return &GoogleBooks{
		httpSource: newHTTPSource(googleBooksName, googleBooksBaseURL, googleBooksTable, googleBooksPriority, opts),
		apiKey:     apiKey,
	}
}

// Name returns the human-readable name of this source.
func (g *GoogleBooks) Name() string { return g.name }

// Priority returns the merge priority (lower = higher precedence).
func (g *GoogleBooks) Priority() int { return g.priority }

// Ping tests the connection to Google Books API.
func (g *GoogleBooks) Ping(ctx context.Context) error {
	// Use a lookup that should always return results
	return g.ping(ctx, g.volumesURL("0140447938")+"&maxResults=1")
}

// FetchRaw queries volumes?q=isbn:{isbn}. Zero totalItems is not found.
func (g *GoogleBooks) FetchRaw(ctx context.Context, rawISBN string) (book.RawPayload, error) {
	normalized := isbn.Normalize(rawISBN)
	if normalized == "" {
		return book.RawPayload{}, book.ErrInvalidISBN
	}

	return g.fetch(ctx, normalized, g.volumesURL(normalized), func(body []byte) (bool, error) {
		var resp googleBooksResponse
		if err := decodeJSON(body, &resp); err != nil {
			return false, err
		}
		return resp.TotalItems == 0 || len(resp.Items) == 0, nil
	})
}

// Normalize maps the first volume of a response to the canonical schema.
func (g *GoogleBooks) Normalize(raw book.RawPayload) (*book.Fields, error) {
	var resp googleBooksResponse
	if err := decodeJSON(raw.Body, &resp); err != nil {
		return nil, g.malformed(err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%s has no volume for ISBN %s: %w", g.name, raw.ISBN, book.ErrNotFound)
	}

	info := resp.Items[0].VolumeInfo
	fields := &book.Fields{
		Title:       presentString(info.Title),
		PageCount:   info.PageCount,
		Publisher:   presentString(info.Publisher),
		ReleaseDate: parseReleaseDate(info.PublishedDate),
		Excerpt:     presentString(info.Description),
	}

	for _, name := range info.Authors {
		if s := presentString(&name); s != nil {
			fields.Authors = append(fields.Authors, *s)
		}
	}

	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" && id.Identifier != "" {
			fields.ISBN = book.StringPtr(isbn.Normalize(id.Identifier))
			break
		}
	}
	if fields.ISBN == nil && raw.ISBN != "" {
		fields.ISBN = book.StringPtr(raw.ISBN)
	}

	return fields, nil
}

// FetchAndNormalize fetches and maps the volume for isbn.
func (g *GoogleBooks) FetchAndNormalize(ctx context.Context, isbn string) (*book.Fields, error) {
	raw, err := g.FetchRaw(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return g.Normalize(raw)
}

func (g *GoogleBooks) volumesURL(isbn string) string {
	u := fmt.Sprintf("%s/volumes?q=isbn:%s", g.baseURL, url.QueryEscape(isbn))
	if g.apiKey != "" {
		u += "&key=" + url.QueryEscape(g.apiKey)
	}
	return u
}

// googleBooksResponse matches the Google Books API response structure.
// Pointer fields preserve presence.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               *string  `json:"title"`
			Authors             []string `json:"authors"`
			Publisher           *string  `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         *string  `json:"description"`
			PageCount           *int     `json:"pageCount"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}
