package catalog

import (
	"context"
	"time"

	"github.com/lepinkainen/readtube/internal/cache"
)

// CachedSearcher serves repeated queries from the sqlite response cache.
// Empty results are cached for cache.NegativeCacheTTL only; failures are
// never cached.
type CachedSearcher struct {
	next  Searcher
	cache *cache.CacheDB
	ttl   time.Duration
}

var _ Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps next. A nil db disables caching.
func NewCachedSearcher(next Searcher, db *cache.CacheDB, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = cache.DefaultCacheTTL
	}
	return &CachedSearcher{next: next, cache: db, ttl: ttl}
}

// Search implements Searcher.
func (s *CachedSearcher) Search(ctx context.Context, q Query) ([]Book, error) {
	if q.Terms() == "" {
		return nil, nil
	}

	selector := cache.SelectNegativeCacheTTL(s.ttl, func(books []Book) bool { return len(books) == 0 })
	books, _, err := cache.GetOrFetchWithTTL(s.cache, cache.CatalogTable, q.CacheKey(), func() ([]Book, error) {
		return s.next.Search(ctx, q)
	}, selector)
	return books, err
}
