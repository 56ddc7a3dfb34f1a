package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("a", "b.txt")
	assert.Equal(t, filepath.Join(env.RootDir(), "a", "b.txt"), path)
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/file.txt", "hello")
	assert.True(t, env.FileExists("nested/file.txt"))
	assert.Equal(t, []byte("hello"), env.ReadFile("nested/file.txt"))
	assert.Equal(t, []string{"file.txt"}, env.ListFiles("nested"))
}

func TestTestEnv_Chdir(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("work/.keep", "")

	env.Chdir("work")
	wd, err := os.Getwd()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(env.Path("work"))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGoldenHelper_AssertGolden(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("golden/out.golden", "expected\n")

	g := NewGoldenHelper(t, env.Path("golden"))
	g.update = false
	g.AssertGoldenString("out.golden", "expected\n")
}

func TestNewViper(t *testing.T) {
	env := NewTestEnv(t)

	cfg, err := config.Load(NewViper(env))
	require.NoError(t, err)
	assert.Equal(t, env.Path("books.db"), cfg.DBFile)
	assert.Equal(t, env.Path("files"), cfg.AssetsDir)
	assert.Equal(t, env.Path("cache.db"), cfg.Cache.DBFile)
}

func TestResetConfig(t *testing.T) {
	viper.Set("datastore.dbfile", "leftover")

	ResetConfig(t)
	assert.False(t, viper.IsSet("datastore.dbfile"))
}

func TestNewStore(t *testing.T) {
	env := NewTestEnv(t)

	store := NewStore(env)
	require.NotNil(t, store)
	assert.True(t, env.FileExists("books.db"))
}
