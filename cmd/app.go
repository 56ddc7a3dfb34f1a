package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/bookshelf/internal/activity"
	"github.com/lepinkainen/bookshelf/internal/cache"
	"github.com/lepinkainen/bookshelf/internal/config"
	"github.com/lepinkainen/bookshelf/internal/cover"
	"github.com/lepinkainen/bookshelf/internal/datastore"
	"github.com/lepinkainen/bookshelf/internal/enrichers"
	"github.com/lepinkainen/bookshelf/internal/enrichment/book"
	"github.com/lepinkainen/bookshelf/internal/library"
	"github.com/lepinkainen/bookshelf/internal/metrics"
	"github.com/lepinkainen/bookshelf/internal/terms"
)

// App holds the collaborators shared by the commands.
type App struct {
	cfg        *config.Config
	store      *datastore.SQLiteStore
	cache      *cache.CacheDB
	metrics    *metrics.Recorder
	library    *library.Service
	activities *activity.Service
}

func newApp(cfg *config.Config) (*App, error) {
	store := datastore.NewSQLiteStore(cfg.DBFile, cfg.AssetsDir)
	if err := store.Connect(); err != nil {
		return nil, err
	}

	var cacheDB *cache.CacheDB
	if cfg.Cache.Enabled {
		var err error
		cacheDB, err = cache.Open(cfg.Cache.DBFile, cache.WithTTL(cfg.Cache.TTL, cfg.Cache.NegativeTTL))
		if err != nil {
			return nil, errors.Join(err, store.Close())
		}
	}

	logger := slog.Default()
	recorder := metrics.NewRecorder()
	resolver := terms.NewResolver(store, logger)

	covers := cover.NewFetcher(store, store,
		cover.WithHosts(cfg.Cover.Hosts),
		cover.WithTimeout(cfg.Cover.Timeout),
		cover.WithMaxWidth(cfg.Cover.MaxWidth),
		cover.WithLogger(logger),
	)

	svc := library.NewService(buildSources(cfg, cacheDB), store, resolver, covers,
		library.WithLogger(logger),
		library.WithObserver(recorder),
		library.WithConcurrentFetch(cfg.ConcurrentSources),
	)

	return &App{
		cfg:        cfg,
		store:      store,
		cache:      cacheDB,
		metrics:    recorder,
		library:    svc,
		activities: activity.NewService(store, store, resolver, logger, nil),
	}, nil
}

// buildSources returns the metadata sources with their configured priorities.
func buildSources(cfg *config.Config, cacheDB *cache.CacheDB) []book.Source {
	common := []enrichers.Option{
		enrichers.WithTimeout(cfg.HTTPTimeout),
		enrichers.WithCache(cacheDB),
	}

	googleOpts := append([]enrichers.Option{
		enrichers.WithRateLimit(cfg.GoogleBooks.RequestsPerSecond),
		enrichers.WithPriority(cfg.GoogleBooks.Priority),
	}, common...)
	if cfg.GoogleBooks.BaseURL != "" {
		googleOpts = append(googleOpts, enrichers.WithBaseURL(cfg.GoogleBooks.BaseURL))
	}

	openLibraryOpts := append([]enrichers.Option{
		enrichers.WithRateLimit(cfg.OpenLibrary.RequestsPerSecond),
		enrichers.WithPriority(cfg.OpenLibrary.Priority),
	}, common...)
	if cfg.OpenLibrary.BaseURL != "" {
		openLibraryOpts = append(openLibraryOpts, enrichers.WithBaseURL(cfg.OpenLibrary.BaseURL))
	}

	return []book.Source{
		enrichers.NewGoogleBooks(cfg.GoogleBooks.APIKey, googleOpts...),
		enrichers.NewOpenLibrary(openLibraryOpts...),
	}
}

// Close writes the metrics textfile and closes the databases.
func (a *App) Close() error {
	var errs []error
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		errs = append(errs, fmt.Errorf("writing metrics: %w", err))
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
