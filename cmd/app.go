package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/readtube/internal/bookmarks"
	"github.com/lepinkainen/readtube/internal/cache"
	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/config"
	"github.com/lepinkainen/readtube/internal/datastore"
	"github.com/lepinkainen/readtube/internal/feed"
	"github.com/lepinkainen/readtube/internal/history"
	"github.com/lepinkainen/readtube/internal/ratelimit"
	"github.com/lepinkainen/readtube/internal/search"
	"github.com/spf13/viper"
)

// app holds the long-lived pieces every command shares.
type app struct {
	cfg       *config.Config
	kv        datastore.KV
	cacheDB   *cache.CacheDB
	searcher  catalog.Searcher
	history   *history.History
	bookmarks *bookmarks.Store
}

// openApp loads configuration from v and opens the stores. The response
// cache is optional: if it cannot be opened the catalog is queried directly.
func openApp(v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	kv, err := datastore.OpenSQLite(cfg.Storage.DBFile)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{cfg: cfg, kv: kv}

	client := catalog.NewClient(cfg.Catalog.APIKey,
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithRateLimiter(ratelimit.New("catalog", cfg.Catalog.RatePerSecond)),
	)
	a.searcher = client

	if cfg.Cache.Enabled {
		db, err := cache.NewCacheDB(cfg.Cache.DBFile)
		if err != nil {
			slog.Warn("Response cache unavailable, querying catalog directly", "path", cfg.Cache.DBFile, "error", err)
		} else {
			a.cacheDB = db
			a.searcher = catalog.NewCachedSearcher(client, db, cfg.Cache.TTL)
		}
	}

	a.history = history.Load(kv)
	a.bookmarks = bookmarks.Load(kv)

	slog.Debug("Opened readtube",
		"storage", cfg.Storage.DBFile,
		"cache", a.cacheDB != nil,
		"catalog", client.BaseURL(),
	)
	return a, nil
}

// newSearchController builds a search controller over the shared searcher.
// A positive resultLimit overrides the configured one.
func (a *app) newSearchController(resultLimit int) *search.Controller {
	limit := a.cfg.Search.ResultLimit
	if resultLimit > 0 {
		limit = resultLimit
	}
	return search.New(a.searcher, a.history, search.Options{
		Genres:          a.cfg.Search.Genres,
		SuggestionLimit: a.cfg.Search.SuggestionLimit,
		ResultLimit:     limit,
		Debounce:        a.cfg.Search.Debounce,
	})
}

// newFeedController builds the new-release feed. An empty subject uses the
// configured one.
func (a *app) newFeedController(subject string) *feed.Controller {
	if subject == "" {
		subject = a.cfg.Feed.Subject
	}
	return feed.New(a.searcher, subject, a.cfg.Feed.PageSize)
}

func (a *app) Close() error {
	var firstErr error
	if a.cacheDB != nil {
		if err := a.cacheDB.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.kv.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
