package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_LeftBias(t *testing.T) {
	primary := &Fields{
		Title:     StringPtr("Moby-Dick"),
		PageCount: IntPtr(654),
		Authors:   []string{"Herman Melville"},
		Publisher: StringPtr("Penguin Books"),
	}
	secondary := &Fields{
		Title:     StringPtr("Moby Dick; or, The Whale"),
		PageCount: IntPtr(720),
		Authors:   []string{"Melville, Herman"},
		Publisher: StringPtr("Harper"),
	}

	merged := Merge(primary, secondary)

	assert.Equal(t, "Moby-Dick", *merged.Title)
	assert.Equal(t, 654, *merged.PageCount)
	assert.Equal(t, []string{"Herman Melville"}, merged.Authors)
	assert.Equal(t, "Penguin Books", *merged.Publisher)
}

func TestMerge_GapFill(t *testing.T) {
	release := time.Date(2003, 2, 1, 0, 0, 0, 0, time.UTC)
	primary := &Fields{Title: StringPtr("Moby-Dick")}
	secondary := &Fields{
		Title:       StringPtr("ignored"),
		ReleaseDate: &release,
		Excerpt:     StringPtr("Call me Ishmael."),
		ISBN:        StringPtr("9780142437247"),
	}

	merged := Merge(primary, secondary)

	assert.Equal(t, "Moby-Dick", *merged.Title)
	require.NotNil(t, merged.ReleaseDate)
	assert.True(t, release.Equal(*merged.ReleaseDate))
	assert.Equal(t, "Call me Ishmael.", *merged.Excerpt)
	assert.Equal(t, "9780142437247", *merged.ISBN)
	assert.Nil(t, merged.PageCount)
	assert.Nil(t, merged.Authors)
}

func TestMerge_ZeroValuesArePresent(t *testing.T) {
	primary := &Fields{PageCount: IntPtr(0), Excerpt: StringPtr(""), Authors: []string{}}
	secondary := &Fields{PageCount: IntPtr(300), Excerpt: StringPtr("text"), Authors: []string{"A"}}

	merged := Merge(primary, secondary)

	assert.Equal(t, 0, *merged.PageCount)
	assert.Equal(t, "", *merged.Excerpt)
	assert.NotNil(t, merged.Authors)
	assert.Empty(t, merged.Authors)
}

func TestMerge_Totality(t *testing.T) {
	merged := Merge(&Fields{}, &Fields{})
	require.NotNil(t, merged)
	assert.True(t, merged.IsEmpty())

	merged = Merge(nil, nil)
	require.NotNil(t, merged)
	assert.True(t, merged.IsEmpty())

	merged = Merge(nil, &Fields{Title: StringPtr("only")})
	assert.Equal(t, "only", *merged.Title)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	primary := &Fields{Title: StringPtr("A"), Authors: []string{"X"}}

	merged := Merge(primary, nil)
	*merged.Title = "changed"
	merged.Authors[0] = "changed"

	assert.Equal(t, "A", *primary.Title)
	assert.Equal(t, "X", primary.Authors[0])
}

func TestMerge_FoldsNSources(t *testing.T) {
	a := &Fields{Title: StringPtr("a")}
	b := &Fields{Publisher: StringPtr("b")}
	c := &Fields{Title: StringPtr("c"), Excerpt: StringPtr("c")}

	merged := Merge(a, b, c)

	assert.Equal(t, "a", *merged.Title)
	assert.Equal(t, "b", *merged.Publisher)
	assert.Equal(t, "c", *merged.Excerpt)
}

func TestPriorityMerger_OrdersByPriority(t *testing.T) {
	results := []SourceResult{
		{Source: "OpenLibrary", Priority: 1, Data: &Fields{Title: StringPtr("OL"), PageCount: IntPtr(10)}},
		{Source: "Google Books", Priority: 0, Data: &Fields{Title: StringPtr("GB")}},
	}

	merged := NewPriorityMerger().Merge(results)

	assert.Equal(t, "GB", *merged.Title)
	assert.Equal(t, 10, *merged.PageCount)
	// Input order is untouched.
	assert.Equal(t, "OpenLibrary", results[0].Source)
}

func TestPriorityMerger_SkipsNilData(t *testing.T) {
	results := []SourceResult{
		{Source: "Google Books", Priority: 0, Data: nil},
		{Source: "OpenLibrary", Priority: 1, Data: &Fields{Title: StringPtr("OL")}},
	}

	merged := NewPriorityMerger().Merge(results)
	assert.Equal(t, "OL", *merged.Title)
}

func TestPriorityMerger_Empty(t *testing.T) {
	merged := NewPriorityMerger().Merge(nil)
	require.NotNil(t, merged)
	assert.True(t, merged.IsEmpty())
}

func TestFieldsIsEmpty(t *testing.T) {
	var nilFields *Fields
	assert.True(t, nilFields.IsEmpty())
	assert.True(t, (&Fields{}).IsEmpty())
	assert.False(t, (&Fields{PageCount: IntPtr(0)}).IsEmpty())
	assert.False(t, (&Fields{Authors: []string{}}).IsEmpty())
}

func TestDatePtr(t *testing.T) {
	in := time.Date(2003, 2, 1, 15, 4, 5, 0, time.FixedZone("X", 3600))
	d := DatePtr(in)
	assert.Equal(t, time.Date(2003, 2, 1, 0, 0, 0, 0, time.UTC), *d)
}
