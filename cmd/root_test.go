package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/lepinkainen/bookshelf/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mobyDickVolume = `{
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "Moby-Dick",
			"authors": ["Herman Melville"],
			"publisher": "Penguin",
			"publishedDate": "2003-02-01",
			"pageCount": 720,
			"industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780142437247"}]
		}
	}]
}`

func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	t.Cleanup(server.Close)
	return server
}

// fakeAPIs serves both metadata APIs and a cover host.
type fakeAPIs struct {
	google      *httptest.Server
	openLibrary *httptest.Server
	covers      *httptest.Server

	googleEmpty  atomic.Bool
	googleDown   atomic.Bool
	coverMissing atomic.Bool
	coverHits    atomic.Int32
}

func newFakeAPIs(t *testing.T) *fakeAPIs {
	t.Helper()
	f := &fakeAPIs{}

	f.google = newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case f.googleDown.Load():
			w.WriteHeader(http.StatusInternalServerError)
		case f.googleEmpty.Load():
			_, _ = w.Write([]byte(`{"totalItems": 0}`))
		default:
			_, _ = w.Write([]byte(mobyDickVolume))
		}
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/books", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs": []}`))
	})
	f.openLibrary = newIPv4TestServer(t, mux)

	f.covers = newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.coverHits.Add(1)
		if f.coverMissing.Load() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("not really a jpeg"))
	}))

	return f
}

// newWorkspace changes into a fresh directory holding a config.yaml that
// points every source at apis.
func newWorkspace(t *testing.T, apis *fakeAPIs) *testutil.TestEnv {
	t.Helper()
	t.Setenv("GOOGLE_BOOKS_API_KEY", "")

	env := testutil.NewTestEnv(t)
	env.WriteFileString("config.yaml", fmt.Sprintf(`datastore:
  dbfile: books.db
assets:
  dir: files
cache:
  dbfile: cache.db
googlebooks:
  base_url: %s
  rps: 0
openlibrary:
  base_url: %s
  rps: 0
cover:
  hosts:
    - %s/covers/{isbn}.jpg
metrics:
  textfile: metrics.prom
`, apis.google.URL, apis.openLibrary.URL, apis.covers.URL))
	env.Chdir(".")
	return env
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context, error) {
	t.Helper()

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("bookshelf"),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	return cli, kctx, err
}

// runCLI parses args and runs them against the global viper, returning stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	testutil.ResetConfig(t)

	var out bytes.Buffer
	origOut, origLog, origLogger := stdout, logDestination, slog.Default()
	stdout, logDestination = &out, io.Discard
	t.Cleanup(func() {
		stdout, logDestination = origOut, origLog
		slog.SetDefault(origLogger)
	})

	cli, kctx, err := parseCLI(t, args...)
	require.NoError(t, err)

	err = run(context.Background(), kctx, cli)
	return out.String(), err
}

func TestBuildSourcesUsesConfiguredPriority(t *testing.T) {
	v := testutil.NewViper(testutil.NewTestEnv(t))
	v.Set("googlebooks.priority", 3)
	v.Set("openlibrary.priority", 0)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	sources := buildSources(cfg, nil)
	require.Len(t, sources, 2)

	priorities := map[string]int{}
	for _, src := range sources {
		priorities[src.Name()] = src.Priority()
	}
	assert.Equal(t, map[string]int{"Google Books": 3, "OpenLibrary": 0}, priorities)
}

func TestApplyFlags(t *testing.T) {
	v := viper.New()

	applyFlags(v, &CLI{
		Verbose:   true,
		DB:        "/tmp/books.db",
		AssetsDir: "/tmp/files",
		NoCache:   true,
	})

	assert.Equal(t, "/tmp/books.db", v.GetString("datastore.dbfile"))
	assert.Equal(t, "/tmp/files", v.GetString("assets.dir"))
	assert.False(t, v.GetBool("cache.enabled"))
	assert.Equal(t, "debug", v.GetString("log.level"))
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	v := viper.New()
	v.Set("datastore.dbfile", "configured.db")

	applyFlags(v, &CLI{})

	assert.Equal(t, "configured.db", v.GetString("datastore.dbfile"))
	assert.False(t, v.IsSet("cache.enabled"))
}

func TestCommandParsing(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T, cli *CLI)
	}{
		{
			name:    "add",
			args:    []string{"add", "978-0-14-243724-7"},
			command: "add <isbn>",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "978-0-14-243724-7", cli.Add.ISBN)
			},
		},
		{
			name:    "update covers alias",
			args:    []string{"buc", "--refresh"},
			command: "update-covers",
			check: func(t *testing.T, cli *CLI) {
				assert.True(t, cli.UpdateCovers.Refresh)
			},
		},
		{
			name:    "list terms defaults",
			args:    []string{"list", "terms"},
			command: "list terms",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "all", cli.List.Terms.Category)
				assert.Equal(t, 0, cli.List.Terms.Offset)
				assert.Equal(t, 20, cli.List.Terms.Limit)
			},
		},
		{
			name:    "activity start",
			args:    []string{"activity", "start", "3"},
			command: "activity start <book-id>",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, int64(3), cli.Activity.Start.BookID)
			},
		},
		{
			name:    "global flags",
			args:    []string{"--db", "x.db", "--no-cache", "-v", "ping"},
			command: "ping",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "x.db", cli.DB)
				assert.True(t, cli.NoCache)
				assert.True(t, cli.Verbose)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, kctx, err := parseCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.command, kctx.Command())
			tt.check(t, cli)
		})
	}
}

func TestCacheInvalidateRejectsUnknownSource(t *testing.T) {
	_, _, err := parseCLI(t, "cache", "invalidate", "amazon")
	require.Error(t, err)
}

func TestAddAndList(t *testing.T) {
	goldenDir, err := filepath.Abs("testdata")
	require.NoError(t, err)

	apis := newFakeAPIs(t)
	env := newWorkspace(t, apis)

	out, err := runCLI(t, "add", "978-0-14-243724-7")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
	assert.Len(t, env.ListFiles("files/book-cover"), 1)
	assert.Contains(t, string(env.ReadFile("metrics.prom")), `bookshelf_book_upserts_total{outcome="ok"} 1`)

	out, err = runCLI(t, "list", "terms")
	require.NoError(t, err)
	testutil.NewGoldenHelper(t, goldenDir).AssertGoldenString("list_terms.golden", out)

	// Re-adding refreshes the same record and reuses the stored cover
	out, err = runCLI(t, "add", "0142437247")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
	assert.Equal(t, int32(1), apis.coverHits.Load())

	out, err = runCLI(t, "list", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 1")
	assert.Contains(t, out, "title: Moby-Dick")
	assert.Contains(t, out, "isbn: \"9780142437247\"")
}

func TestAddRejectsInvalidISBN(t *testing.T) {
	newWorkspace(t, newFakeAPIs(t))

	_, err := runCLI(t, "add", "978-0-14-243724-0")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAddWithoutSourceData(t *testing.T) {
	apis := newFakeAPIs(t)
	apis.googleEmpty.Store(true)
	newWorkspace(t, apis)

	_, err := runCLI(t, "add", "9780142437247")
	require.Error(t, err)
	assert.True(t, errors.Is(err, book.ErrNotFound))

	out, err := runCLI(t, "list", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 0")
	assert.Zero(t, apis.coverHits.Load())
}

func TestUpdateCovers(t *testing.T) {
	apis := newFakeAPIs(t)
	apis.coverMissing.Store(true)
	env := newWorkspace(t, apis)

	_, err := runCLI(t, "add", "9780142437247")
	require.NoError(t, err)
	assert.False(t, env.FileExists("files/book-cover"))

	apis.coverMissing.Store(false)
	out, err := runCLI(t, "update-covers")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 1")
	assert.Contains(t, out, "succeeded: 1")
	assert.Contains(t, out, "failed: 0")
	assert.Len(t, env.ListFiles("files/book-cover"), 1)

	out, err = runCLI(t, "buc")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 0")
}

func TestPing(t *testing.T) {
	apis := newFakeAPIs(t)
	newWorkspace(t, apis)

	out, err := runCLI(t, "ping")
	require.NoError(t, err)
	assert.Equal(t, "Google Books: ok\nOpenLibrary: ok\n", out)

	apis.googleDown.Store(true)
	out, err = runCLI(t, "ping")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "Google Books: "))
	assert.Contains(t, out, "OpenLibrary: ok")
}

func TestActivityLifecycle(t *testing.T) {
	newWorkspace(t, newFakeAPIs(t))

	_, err := runCLI(t, "add", "9780142437247")
	require.NoError(t, err)

	out, err := runCLI(t, "activity", "start", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "book_id: 1")
	assert.Contains(t, out, "title: Moby-Dick")
	assert.NotContains(t, out, "end_date")

	out, err = runCLI(t, "activity", "finish", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "end_date:")

	out, err = runCLI(t, "list", "terms", "--category", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Reading")
	assert.Contains(t, out, "name: Finished")
}

func TestCacheInvalidate(t *testing.T) {
	newWorkspace(t, newFakeAPIs(t))

	_, err := runCLI(t, "add", "9780142437247")
	require.NoError(t, err)

	out, err := runCLI(t, "cache", "invalidate", "googlebooks")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 entries from googlebooks_cache\n", out)

	_, err = runCLI(t, "--no-cache", "cache", "invalidate", "googlebooks")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFilesPurge(t *testing.T) {
	env := newWorkspace(t, newFakeAPIs(t))

	store := testutil.NewStore(env)
	_, err := store.WriteFile(context.Background(), []byte("orphan"), "book-cover", "orphan.jpg")
	require.NoError(t, err)

	out, err := runCLI(t, "files", "purge", "--max-age", "0s")
	require.NoError(t, err)
	assert.Equal(t, "purged 1 files\n", out)
	assert.False(t, env.FileExists("files/book-cover/orphan.jpg"))
}

func TestNewApp(t *testing.T) {
	env := testutil.NewTestEnv(t)

	cfg, err := config.Load(testutil.NewViper(env))
	require.NoError(t, err)

	app, err := newApp(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Google Books", "OpenLibrary"}, app.library.Sources())
	assert.NotNil(t, app.cache)
	require.NoError(t, app.Close())
	assert.False(t, env.FileExists("metrics.prom"))

	cfg.Cache.Enabled = false
	app, err = newApp(cfg)
	require.NoError(t, err)
	assert.Nil(t, app.cache)
	require.NoError(t, app.Close())
}

func TestWritesDefaultConfig(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Chdir(".")

	_, err := runCLI(t, "list", "books")
	require.NoError(t, err)
	assert.True(t, env.FileExists("config.yaml"))
	assert.True(t, env.FileExists("books.db"))
}

func TestExplicitConfigMustExist(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Chdir(".")

	_, err := runCLI(t, "--config", env.Path("missing.yaml"), "list", "books")
	require.Error(t, err)
}
