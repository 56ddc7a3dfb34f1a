package testutil

import (
	"testing"

	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/bookshelf/internal/datastore"
	"github.com/spf13/viper"
)

// NewViper returns a viper instance with the bookshelf defaults and every
// file path pointing inside env. Sources get no rate limit.
func NewViper(env *TestEnv) *viper.Viper {
	env.t.Helper()
	env.t.Setenv("GOOGLE_BOOKS_API_KEY", "")

	v := viper.New()
	config.SetDefaults(v)
	v.Set("datastore.dbfile", env.Path("books.db"))
	v.Set("assets.dir", env.Path("files"))
	v.Set("cache.dbfile", env.Path("cache.db"))
	v.Set("googlebooks.rps", 0)
	v.Set("openlibrary.rps", 0)
	return v
}

// ResetConfig resets the global viper instance now and when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// NewStore opens a SQLite store inside env, closed when the test completes.
func NewStore(env *TestEnv) *datastore.SQLiteStore {
	env.t.Helper()

	store := datastore.NewSQLiteStore(env.Path("books.db"), env.Path("files"))
	if err := store.Connect(); err != nil {
		env.t.Fatalf("failed to open store: %v", err)
	}
	env.t.Cleanup(func() { _ = store.Close() })
	return store
}
