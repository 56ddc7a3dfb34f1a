// Package config maps viper settings onto a typed configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lepinkainen/bookshelf/internal/cover"
	apperrors "github.com/lepinkainen/bookshelf/internal/errors"
	"github.com/spf13/viper"
)

// Config is the complete runtime configuration.
type Config struct {
	DBFile            string
	AssetsDir         string
	Cache             CacheConfig
	HTTPTimeout       time.Duration
	Cover             CoverConfig
	GoogleBooks       SourceConfig
	OpenLibrary       SourceConfig
	ConcurrentSources bool
	MetricsTextfile   string
	LogLevel          slog.Level
}

// CacheConfig configures the raw response cache.
type CacheConfig struct {
	Enabled     bool
	DBFile      string
	TTL         time.Duration
	NegativeTTL time.Duration
}

// CoverConfig configures cover downloads.
type CoverConfig struct {
	Timeout  time.Duration
	Hosts    []string
	MaxWidth int
}

// SourceConfig configures one metadata API. An empty BaseURL keeps the
// public endpoint.
type SourceConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	// Priority orders the source when merging; lower wins.
	Priority int
}

// SetDefaults registers every default and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("datastore.dbfile", "./books.db")
	v.SetDefault("assets.dir", "./files")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dbfile", "./cache.db")
	v.SetDefault("cache.ttl", "720h")          // 30 days
	v.SetDefault("cache.negative_ttl", "168h") // 7 days

	v.SetDefault("http.timeout", "10s")

	v.SetDefault("cover.timeout", "30s")
	v.SetDefault("cover.hosts", cover.DefaultHosts)
	v.SetDefault("cover.max_width", 0)

	v.SetDefault("googlebooks.base_url", "")
	v.SetDefault("googlebooks.rps", 1.0)
	v.SetDefault("googlebooks.priority", 0)
	v.SetDefault("openlibrary.base_url", "")
	v.SetDefault("openlibrary.rps", 1.0)
	v.SetDefault("openlibrary.priority", 1)
	v.SetDefault("sources.concurrent", true)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("BOOKSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bind specific environment variables to config keys
	if err := v.BindEnv("googlebooks.apikey", "GOOGLE_BOOKS_API_KEY", "BOOKSHELF_GOOGLEBOOKS_APIKEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBFile:    v.GetString("datastore.dbfile"),
		AssetsDir: v.GetString("assets.dir"),
		Cache: CacheConfig{
			Enabled:     v.GetBool("cache.enabled"),
			DBFile:      v.GetString("cache.dbfile"),
			TTL:         v.GetDuration("cache.ttl"),
			NegativeTTL: v.GetDuration("cache.negative_ttl"),
		},
		HTTPTimeout: v.GetDuration("http.timeout"),
		Cover: CoverConfig{
			Timeout:  v.GetDuration("cover.timeout"),
			Hosts:    v.GetStringSlice("cover.hosts"),
			MaxWidth: v.GetInt("cover.max_width"),
		},
		GoogleBooks: SourceConfig{
			BaseURL:           v.GetString("googlebooks.base_url"),
			APIKey:            v.GetString("googlebooks.apikey"),
			RequestsPerSecond: v.GetFloat64("googlebooks.rps"),
			Priority:          v.GetInt("googlebooks.priority"),
		},
		OpenLibrary: SourceConfig{
			BaseURL:           v.GetString("openlibrary.base_url"),
			RequestsPerSecond: v.GetFloat64("openlibrary.rps"),
			Priority:          v.GetInt("openlibrary.priority"),
		},
		ConcurrentSources: v.GetBool("sources.concurrent"),
		MetricsTextfile:   v.GetString("metrics.textfile"),
	}

	level, err := ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.DBFile == "":
		return apperrors.NewValidationError("datastore.dbfile", "must not be empty")
	case c.AssetsDir == "":
		return apperrors.NewValidationError("assets.dir", "must not be empty")
	case c.Cache.Enabled && c.Cache.DBFile == "":
		return apperrors.NewValidationError("cache.dbfile", "must not be empty when the cache is enabled")
	case c.Cache.TTL < 0:
		return apperrors.NewValidationError("cache.ttl", "must not be negative")
	case c.Cache.NegativeTTL < 0:
		return apperrors.NewValidationError("cache.negative_ttl", "must not be negative")
	case c.HTTPTimeout <= 0:
		return apperrors.NewValidationError("http.timeout", "must be positive")
	case c.Cover.Timeout <= 0:
		return apperrors.NewValidationError("cover.timeout", "must be positive")
	case c.Cover.MaxWidth < 0:
		return apperrors.NewValidationError("cover.max_width", "must not be negative")
	}

	for _, host := range c.Cover.Hosts {
		if !strings.Contains(host, "{isbn}") {
			return apperrors.NewValidationError("cover.hosts", fmt.Sprintf("%q has no {isbn} placeholder", host))
		}
	}
	return nil
}

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, apperrors.NewValidationError("log.level", err.Error())
	}
	return level, nil
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}
