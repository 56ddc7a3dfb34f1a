// Package testutil provides test helpers for bookshelf packages.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEnv is a temporary working area for one test. Paths handed to its
// methods are relative to the root and may not leave it.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a TestEnv rooted in t.TempDir().
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the absolute root of the environment.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path resolves elem against the root and fails the test if the result
// points outside it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	p := filepath.Join(append([]string{e.rootDir}, elem...)...)
	if p != e.rootDir && !strings.HasPrefix(p, e.rootDir+string(filepath.Separator)) {
		e.t.Fatalf("%q is outside the test environment %q", p, e.rootDir)
	}
	return p
}

// WriteFile creates name with content, including parent directories.
func (e *TestEnv) WriteFile(name string, content []byte) {
	e.t.Helper()

	p := e.Path(name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(e.t, os.WriteFile(p, content, 0o644))
}

// WriteFileString is WriteFile for text.
func (e *TestEnv) WriteFileString(name, content string) {
	e.t.Helper()
	e.WriteFile(name, []byte(content))
}

// ReadFile returns the content of name.
func (e *TestEnv) ReadFile(name string) []byte {
	e.t.Helper()

	data, err := os.ReadFile(e.Path(name))
	require.NoError(e.t, err)
	return data
}

// FileExists reports whether name exists.
func (e *TestEnv) FileExists(name string) bool {
	e.t.Helper()

	_, err := os.Stat(e.Path(name))
	return err == nil
}

// ListFiles returns the entry names of directory name.
func (e *TestEnv) ListFiles(name string) []string {
	e.t.Helper()

	entries, err := os.ReadDir(e.Path(name))
	require.NoError(e.t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// Chdir makes name the working directory until the test ends.
// Tests using it must not run in parallel.
func (e *TestEnv) Chdir(name string) {
	e.t.Helper()
	e.t.Chdir(e.Path(name))
}
