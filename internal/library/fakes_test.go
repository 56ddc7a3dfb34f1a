package library

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lepinkainen/bookshelf/internal/cover"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

type fakeSource struct {
	name     string
	priority int
	fields   *book.Fields
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeSource) Name() string               { return f.name }
func (f *fakeSource) Priority() int              { return f.priority }
func (f *fakeSource) Ping(context.Context) error { return f.err }
func (f *fakeSource) Normalize(book.RawPayload) (*book.Fields, error) {
	return f.fields, f.err
}

func (f *fakeSource) FetchRaw(context.Context, string) (book.RawPayload, error) {
	return book.RawPayload{}, f.err
}

func (f *fakeSource) FetchAndNormalize(ctx context.Context, _ string) (*book.Fields, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.fields, nil
}

// memBooks is an in-memory BookStore that counts writes.
type memBooks struct {
	mu     sync.Mutex
	books  map[int64]*Book
	nextID int64
	saves  int
}

func newMemBooks() *memBooks { return &memBooks{books: map[int64]*Book{}} }

func clone(b *Book) *Book {
	c := *b
	c.AuthorIDs = slices.Clone(b.AuthorIDs)
	return &c
}

func (m *memBooks) FindBookByISBN(_ context.Context, isbn string) (*Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ISBN == isbn {
			return clone(b), true, nil
		}
	}
	return nil, false, nil
}

func (m *memBooks) GetBook(_ context.Context, id int64) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return clone(b), nil
}

func (m *memBooks) SaveBook(_ context.Context, b *Book) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if b.ID == 0 {
		m.nextID++
		b.ID = m.nextID
	}
	m.books[b.ID] = clone(b)
	return b.ID, nil
}

func (m *memBooks) BookIDsMissingCover(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, b := range m.books {
		if b.CoverID == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memBooks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.books)
}

// memTerms is an in-memory terms.Store.
type memTerms struct {
	mu     sync.Mutex
	terms  []terms.Term
	nextID int64
}

func (m *memTerms) FindTerm(_ context.Context, category terms.Category, name string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.terms {
		if t.Category == category && t.Name == name {
			return t.ID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memTerms) CreateTerm(_ context.Context, category terms.Category, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.terms = append(m.terms, terms.Term{ID: m.nextID, Category: category, Name: name})
	return m.nextID, nil
}

func (m *memTerms) byCategory(category terms.Category) []terms.Term {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []terms.Term
	for _, t := range m.terms {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

func (m *memTerms) name(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.terms {
		if t.ID == id {
			return t.Name
		}
	}
	return ""
}

// fakeCovers returns a fixed asset per ISBN or err.
type fakeCovers struct {
	assets map[string]*cover.Asset
	err    error
	calls  atomic.Int32
}

func (f *fakeCovers) FetchCover(_ context.Context, isbn string) (*cover.Asset, error) {
	f.calls.Add(1)
	if a, ok := f.assets[isbn]; ok {
		return a, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, book.ErrNotFound
}

type recordingObserver struct {
	mu      sync.Mutex
	sources map[string][]string
	covers  []string
	upserts []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{sources: map[string][]string{}}
}

func (r *recordingObserver) ObserveSource(source, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source] = append(r.sources[source], outcome)
}

func (r *recordingObserver) ObserveCover(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.covers = append(r.covers, outcome)
}

func (r *recordingObserver) ObserveUpsert(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, outcome)
}
