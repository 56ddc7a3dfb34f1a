// Package cover finds a cover image for an ISBN on a fixed list of image
// hosts and stores it as a permanent file.
package cover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/fileutil"
)

const (
	// Directory is where cover files are stored, relative to the asset root.
	Directory = "book-cover"

	defaultTimeout = 30 * time.Second
	maxImageBytes  = 20 << 20
)

// DefaultHosts are the cover URL templates, tried in order.
// "{isbn}" is replaced with the ISBN.
var DefaultHosts = []string{
	"https://hachette.imgix.net/books/{isbn}.jpg",
	"https://images.macmillan.com/folio-assets/macmillan_us_frontbookcovers_1000H/{isbn}.jpg",
	"https://images2.penguinrandomhouse.com/cover/700jpg/{isbn}",
}

// Asset is a stored cover, at most one per ISBN.
type Asset struct {
	ID     int64
	ISBN   string
	FileID int64
	URI    string
}

// File is a managed binary file.
type File struct {
	ID        int64
	URI       string
	Permanent bool
}

// Store persists cover assets.
type Store interface {
	FindCoverByISBN(ctx context.Context, isbn string) (*Asset, bool, error)
	CreateCover(ctx context.Context, isbn string, file *File) (*Asset, error)
}

// FileStore writes managed files.
type FileStore interface {
	WriteFile(ctx context.Context, data []byte, dir, filename string) (*File, error)
	SetPermanent(ctx context.Context, fileID int64) error
}

// Doer is the HTTP client collaborator. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHosts replaces the URL templates. An empty list keeps the defaults.
func WithHosts(hosts []string) Option {
	return func(f *Fetcher) {
		if len(hosts) > 0 {
			f.hosts = append([]string(nil), hosts...)
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client Doer) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithTimeout sets the per-host timeout. Zero keeps the default.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithMaxWidth downsizes wider images before storing them. 0 disables resizing.
func WithMaxWidth(width int) Option {
	return func(f *Fetcher) { f.maxWidth = width }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher implements the cover lookup.
type Fetcher struct {
	store    Store
	files    FileStore
	client   Doer
	hosts    []string
	timeout  time.Duration
	maxWidth int
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(store Store, files FileStore, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:   store,
		files:   files,
		hosts:   append([]string(nil), DefaultHosts...),
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Hosts returns the URL templates in attempt order.
func (f *Fetcher) Hosts() []string {
	return append([]string(nil), f.hosts...)
}

// FetchCover returns the cover for isbn. An existing asset is returned without
// any network access. Otherwise the hosts are tried in order and the first
// image found is stored. Returns an error wrapping book.ErrNotFound when no
// host has one.
func (f *Fetcher) FetchCover(ctx context.Context, isbn string) (*Asset, error) {
	existing, found, err := f.store.FindCoverByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("looking up cover for %s: %w", isbn, err)
	}
	if found {
		f.logger.Debug("Cover already exists", "isbn", isbn, "cover_id", existing.ID)
		return existing, nil
	}

	for _, tmpl := range f.hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		coverURL := strings.ReplaceAll(tmpl, "{isbn}", url.PathEscape(isbn))
		data, err := f.download(ctx, coverURL)
		if err != nil {
			if apperrors.IsTransient(err) {
				f.logger.Warn("Cover host failed", "isbn", isbn, "url", coverURL, "error", err)
			} else {
				f.logger.Debug("No cover on host", "isbn", isbn, "url", coverURL, "error", err)
			}
			continue
		}

		asset, err := f.persist(ctx, isbn, coverURL, data)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Downloaded cover", "isbn", isbn, "url", coverURL, "uri", asset.URI)
		return asset, nil
	}

	return nil, fmt.Errorf("no cover for ISBN %s: %w", isbn, book.ErrNotFound)
}

// download performs a single GET. Network failures are transient, a non-2xx
// status or an empty body is a plain miss.
func (f *Fetcher) download(ctx context.Context, coverURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientError(hostOf(coverURL), 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperrors.NewTransientError(hostOf(coverURL), resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}

func (f *Fetcher) persist(ctx context.Context, isbn, coverURL string, data []byte) (*Asset, error) {
	data = f.resize(data)

	file, err := f.files.WriteFile(ctx, data, Directory, Filename(coverURL))
	if err != nil {
		return nil, fmt.Errorf("saving cover for %s: %w", isbn, err)
	}
	if err := f.files.SetPermanent(ctx, file.ID); err != nil {
		return nil, fmt.Errorf("marking cover file %d permanent: %w", file.ID, err)
	}
	file.Permanent = true

	asset, err := f.store.CreateCover(ctx, isbn, file)
	if err != nil {
		return nil, fmt.Errorf("creating cover for %s: %w", isbn, err)
	}
	return asset, nil
}

// resize shrinks images wider than maxWidth. Anything imaging cannot decode
// is stored as downloaded.
func (f *Fetcher) resize(data []byte) []byte {
	if f.maxWidth <= 0 {
		return data
	}

	img, format, err := decode(data)
	if err != nil {
		f.logger.Debug("Cover not decodable, storing as is", "error", err)
		return data
	}
	if img.Bounds().Dx() <= f.maxWidth {
		return data
	}

	img = imaging.Resize(img, f.maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		f.logger.Debug("Failed to encode resized cover, storing original", "error", err)
		return data
	}
	return buf.Bytes()
}

// Filename builds a collision-safe filename from the last path segment of
// coverURL.
func Filename(coverURL string) string {
	base := "cover"
	if u, err := url.Parse(coverURL); err == nil {
		if b := path.Base(u.Path); b != "." && b != "/" && b != "" {
			base = b
		}
	}
	return uuid.NewString() + "_" + fileutil.SanitizeFilename(base)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "cover host"
	}
	return u.Host
}
