package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares command output with files under a testdata
// directory. Run the tests with UPDATE_GOLDEN=true to rewrite them.
type GoldenHelper struct {
	t      *testing.T
	dir    string
	update bool
}

// NewGoldenHelper returns a helper reading golden files from dir.
func NewGoldenHelper(t *testing.T, dir string) *GoldenHelper {
	t.Helper()
	return &GoldenHelper{t: t, dir: dir, update: os.Getenv("UPDATE_GOLDEN") == "true"}
}

// GoldenPath returns the path of golden file name.
func (g *GoldenHelper) GoldenPath(name string) string {
	return filepath.Join(g.dir, name)
}

// AssertGolden fails the test when actual differs from golden file name.
func (g *GoldenHelper) AssertGolden(name string, actual []byte) {
	g.t.Helper()

	p := g.GoldenPath(name)
	if g.update {
		require.NoError(g.t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(g.t, os.WriteFile(p, actual, 0o644))
		g.t.Logf("updated %s", p)
		return
	}

	want, err := os.ReadFile(p)
	require.NoError(g.t, err, "reading golden file %s", p)
	assert.Equal(g.t, string(want), string(actual), "output differs from %s", name)
}

// AssertGoldenString is AssertGolden for text.
func (g *GoldenHelper) AssertGoldenString(name, actual string) {
	g.t.Helper()
	g.AssertGolden(name, []byte(actual))
}
