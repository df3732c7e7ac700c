// Package config exposes readtube settings loaded through viper.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view over the viper keys used by readtube.
type Config struct {
	Catalog CatalogConfig
	Search  SearchConfig
	Feed    FeedConfig
	Storage StorageConfig
	Cache   CacheConfig
	LogFile string
}

// CatalogConfig configures the book catalog client.
type CatalogConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
}

// SearchConfig configures the search controller.
type SearchConfig struct {
	Genres          []string
	SuggestionLimit int
	ResultLimit     int
	Debounce        time.Duration
}

// FeedConfig configures the new-release feed.
type FeedConfig struct {
	Subject  string
	PageSize int
}

// StorageConfig locates the durable key/value store.
type StorageConfig struct {
	DBFile string
}

// CacheConfig configures the catalog response cache.
type CacheConfig struct {
	Enabled bool
	DBFile  string
	TTL     time.Duration
}

// DefaultGenres is the genre filter list offered by the search bar.
// "All" disables the subject constraint.
var DefaultGenres = []string{
	"All",
	"Classic",
	"Fiction",
	"Science Fiction",
	"Romance",
	"Adventure",
	"Mystery",
	"Fantasy",
	"Biography",
	"History",
	"Poetry",
}

// SetDefaults registers every default value with viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog.baseurl", "https://www.googleapis.com/books/v1")
	v.SetDefault("catalog.apikey", "")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.ratepersecond", 4)

	v.SetDefault("search.genres", DefaultGenres)
	v.SetDefault("search.suggestionlimit", 5)
	v.SetDefault("search.resultlimit", 20)
	v.SetDefault("search.debounce", "300ms")

	v.SetDefault("feed.subject", "fiction")
	v.SetDefault("feed.pagesize", 20)

	v.SetDefault("storage.dbfile", "./readtube.db")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dbfile", "./cache.db")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("logfile", "./readtube.log")
}

// Load builds a Config from v, which should already have defaults, files and
// environment bindings applied.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := parseDuration(v, "catalog.timeout")
	if err != nil {
		return nil, err
	}
	debounce, err := parseDuration(v, "search.debounce")
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration(v, "cache.ttl")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Catalog: CatalogConfig{
			BaseURL:       v.GetString("catalog.baseurl"),
			APIKey:        v.GetString("catalog.apikey"),
			Timeout:       timeout,
			RatePerSecond: v.GetFloat64("catalog.ratepersecond"),
		},
		Search: SearchConfig{
			Genres:          v.GetStringSlice("search.genres"),
			SuggestionLimit: v.GetInt("search.suggestionlimit"),
			ResultLimit:     v.GetInt("search.resultlimit"),
			Debounce:        debounce,
		},
		Feed: FeedConfig{
			Subject:  v.GetString("feed.subject"),
			PageSize: v.GetInt("feed.pagesize"),
		},
		Storage: StorageConfig{
			DBFile: v.GetString("storage.dbfile"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			DBFile:  v.GetString("cache.dbfile"),
			TTL:     ttl,
		},
		LogFile: v.GetString("logfile"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.baseurl must not be empty")
	}
	if c.Search.SuggestionLimit <= 0 || c.Search.ResultLimit <= 0 {
		return fmt.Errorf("search limits must be positive (suggestions=%d, results=%d)",
			c.Search.SuggestionLimit, c.Search.ResultLimit)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.pagesize must be positive, got %d", c.Feed.PageSize)
	}
	if len(c.Search.Genres) == 0 {
		c.Search.Genres = append([]string(nil), DefaultGenres...)
	}
	if c.Catalog.APIKey == "" {
		slog.Debug("No catalog API key configured, requests will be anonymous")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s (%q): %w", key, raw, err)
	}
	return d, nil
}
