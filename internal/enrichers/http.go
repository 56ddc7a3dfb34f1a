// Package enrichers implements book.Source for the external book metadata
// APIs: Google Books and Open Library.
package enrichers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lepinkainen/bookshelf/internal/cache"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/ratelimit"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Doer is the HTTP client collaborator. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a source client.
type Option func(*httpSource)

// WithBaseURL points the client at a different API root (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(s *httpSource) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client Doer) Option {
	return func(s *httpSource) { s.httpClient = client }
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(timeout time.Duration) Option {
	return func(s *httpSource) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRateLimit limits outbound requests per second. Non-positive disables limiting.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(s *httpSource) { s.limiter = ratelimit.New(s.name, requestsPerSecond) }
}

// WithCache stores raw responses in c.
func WithCache(c *cache.CacheDB) Option {
	return func(s *httpSource) { s.cache = c }
}

// WithPriority overrides the merge priority.
func WithPriority(priority int) Option {
	return func(s *httpSource) { s.priority = priority }
}

// httpSource holds the transport shared by the source clients.
type httpSource struct {
	name       string
	baseURL    string
	priority   int
	httpClient Doer
	timeout    time.Duration
	limiter    *ratelimit.Limiter
	cache      *cache.CacheDB
	cacheTable string
}

func newHTTPSource(name, baseURL, cacheTable string, priority int, opts []Option) httpSource {
	s := httpSource{
		name:       name,
		baseURL:    baseURL,
		priority:   priority,
		timeout:    defaultTimeout,
		limiter:    ratelimit.New(name, 1),
		cacheTable: cacheTable,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	return s
}

// cachedRawResult wraps a raw body with metadata for caching.
type cachedRawResult struct {
	Body     []byte `json:"body"`
	NotFound bool   `json:"not_found"`
}

// fetch GETs url once (or serves it from cache) and classifies the outcome.
// isEmpty decides whether a 200 body means "no results".
func (s *httpSource) fetch(ctx context.Context, isbn, url string, isEmpty func([]byte) (bool, error)) (book.RawPayload, error) {
	result, _, err := cache.GetOrFetch(s.cache, s.cacheTable, isbn, func() (cachedRawResult, error) {
		body, err := s.get(ctx, url)
		if errors.Is(err, book.ErrNotFound) && !isTimeout(err) {
			return cachedRawResult{NotFound: true}, nil
		}
		if err != nil {
			return cachedRawResult{}, err
		}

		empty, err := isEmpty(body)
		if err != nil {
			return cachedRawResult{}, apperrors.NewTransientError(s.name, 0, fmt.Errorf("malformed response: %w", err))
		}
		if empty {
			return cachedRawResult{NotFound: true}, nil
		}
		return cachedRawResult{Body: body}, nil
	}, cache.SelectNegativeCacheTTL(s.cache, func(r cachedRawResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return book.RawPayload{}, err
	}

	if result.NotFound {
		return book.RawPayload{}, fmt.Errorf("%s has no record for ISBN %s: %w", s.name, isbn, book.ErrNotFound)
	}
	return book.RawPayload{ISBN: isbn, Body: result.Body}, nil
}

// get performs a single GET. Timeouts and 404s report ErrNotFound, every
// other failure is a TransientError.
// The timeout covers the round-trip only, not the wait for a rate limit token.
func (s *httpSource) get(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewTransientError(s.name, 0, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewTransientError(s.name, 0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s request timed out: %w: %w", s.name, book.ErrNotFound, err)
		}
		return nil, apperrors.NewTransientError(s.name, 0, fmt.Errorf("API request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s returned status %d: %w", s.name, resp.StatusCode, book.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewTransientError(s.name, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s response timed out: %w: %w", s.name, book.ErrNotFound, err)
		}
		return nil, apperrors.NewTransientError(s.name, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}
	return body, nil
}

func (s *httpSource) ping(ctx context.Context, url string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s ping failed: %w", s.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", s.name, resp.StatusCode)
	}
	return nil
}

func (s *httpSource) malformed(err error) error {
	return apperrors.NewTransientError(s.name, 0, fmt.Errorf("malformed response: %w", err))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeJSON is a strict helper for the Normalize implementations.
func decodeJSON(body []byte, v any) error {
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, v)
}

// parseReleaseDate turns a free-form publication date ("2003-02-01",
// "February 1, 2003", "1851") into a calendar date. Unparseable input is absent.
func parseReleaseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil
	}
	return book.DatePtr(t)
}

// presentString treats missing and blank strings as absent.
func presentString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
