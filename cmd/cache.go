package cmd

import (
	"fmt"

	"github.com/lepinkainen/readtube/internal/cache"
	"github.com/lepinkainen/readtube/internal/config"
	"github.com/spf13/viper"
)

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Invalidate CacheInvalidateCmd `cmd:"" help:"Drop every cached catalog response"`
	Prune      CachePruneCmd      `cmd:"" help:"Drop expired catalog responses"`
}

// CacheInvalidateCmd empties the response cache
type CacheInvalidateCmd struct{}

func (c *CacheInvalidateCmd) Run() error {
	return withCacheDB(func(db *cache.CacheDB) error {
		n, err := db.InvalidateSource(cache.CatalogTable)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Removed %d cached responses\n", n)
		return nil
	})
}

// CachePruneCmd removes expired entries
type CachePruneCmd struct{}

func (c *CachePruneCmd) Run() error {
	return withCacheDB(func(db *cache.CacheDB) error {
		n, err := db.ClearExpired(cache.CatalogTable)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Removed %d expired responses\n", n)
		return nil
	})
}

// withCacheDB opens the cache file even when caching is disabled so a stale
// cache can still be cleaned up.
func withCacheDB(fn func(db *cache.CacheDB) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	db, err := cache.NewCacheDB(cfg.Cache.DBFile)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}
