package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lepinkainen/bookshelf/internal/cache"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
)

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Invalidate CacheInvalidateCmd `cmd:"" help:"Drop every cached response of one source"`
}

// CacheInvalidateCmd represents the cache invalidate command
type CacheInvalidateCmd struct {
	Source string `arg:"" help:"Source to invalidate (googlebooks or openlibrary)" enum:"googlebooks,openlibrary"`
}

// FilesCmd represents the files command and its subcommands
type FilesCmd struct {
	Purge FilesPurgeCmd `cmd:"" help:"Delete temporary files that were never attached to a record"`
}

// FilesPurgeCmd represents the files purge command
type FilesPurgeCmd struct {
	MaxAge time.Duration `help:"Only purge files older than this" default:"24h"`
}

func (c *CacheInvalidateCmd) Run(app *App, out io.Writer) error {
	if app.cache == nil {
		return apperrors.NewValidationError("cache", "the cache is disabled")
	}

	table, ok := cache.TableForSource(c.Source)
	if !ok {
		return apperrors.NewValidationError("source", fmt.Sprintf("unknown source %q", c.Source))
	}

	n, err := app.cache.InvalidateSource(table)
	if err != nil {
		return err
	}

	slog.Info("Cache invalidated", "table", table, "entries", n)
	_, err = fmt.Fprintf(out, "removed %d entries from %s\n", n, table)
	return err
}

func (c *FilesPurgeCmd) Run(ctx context.Context, app *App, out io.Writer) error {
	n, err := app.store.PurgeTemporaryFiles(ctx, c.MaxAge)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "purged %d files\n", n)
	return err
}
