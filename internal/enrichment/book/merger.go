package book

import (
	"slices"
)

// Merger defines the interface for merging book information from multiple sources.
type Merger interface {
	// Merge combines multiple SourceResults into a single Fields value.
	Merge(results []SourceResult) *Fields
}

// PriorityMerger implements Merger by ordering results by priority
// (lower number = higher precedence) and left-folding them with Merge.
type PriorityMerger struct{}

// NewPriorityMerger creates a new PriorityMerger.
func NewPriorityMerger() *PriorityMerger {
	return &PriorityMerger{}
}

// Merge sorts a copy of results by priority and folds them with Merge.
// Results with equal priority keep their input order. The result is never nil.
func (m *PriorityMerger) Merge(results []SourceResult) *Fields {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b SourceResult) int {
		return a.Priority - b.Priority
	})

	merged := &Fields{}
	for _, result := range sorted {
		merged = Merge(merged, result.Data)
	}
	return merged
}

// Merge reconciles field sets in priority order: for every field the result
// takes the first present value, scanning primary, secondary, then rest.
// Later sets only fill gaps. Nil inputs count as empty; the result is a fresh
// value and never nil.
func Merge(primary, secondary *Fields, rest ...*Fields) *Fields {
	merged := mergePair(primary, secondary)
	for _, next := range rest {
		merged = mergePair(merged, next)
	}
	return merged
}

func mergePair(a, b *Fields) *Fields {
	if a == nil {
		a = &Fields{}
	}
	if b == nil {
		b = &Fields{}
	}

	return &Fields{
		Title:       firstPresent(a.Title, b.Title),
		PageCount:   firstPresent(a.PageCount, b.PageCount),
		Authors:     firstAuthors(a.Authors, b.Authors),
		Publisher:   firstPresent(a.Publisher, b.Publisher),
		ISBN:        firstPresent(a.ISBN, b.ISBN),
		ReleaseDate: firstPresent(a.ReleaseDate, b.ReleaseDate),
		Excerpt:     firstPresent(a.Excerpt, b.Excerpt),
	}
}

func firstPresent[T any](a, b *T) *T {
	if a != nil {
		v := *a
		return &v
	}
	if b != nil {
		v := *b
		return &v
	}
	return nil
}

func firstAuthors(a, b []string) []string {
	if a != nil {
		return slices.Clone(a)
	}
	if b != nil {
		return slices.Clone(b)
	}
	return nil
}
