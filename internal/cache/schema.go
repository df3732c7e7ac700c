package cache

// CatalogTable caches catalog search responses keyed on the normalized query.
const CatalogTable = "catalog_cache"

// CatalogCacheSchema defines the schema for the catalog response cache.
// Timestamps are unix seconds.
const CatalogCacheSchema = `
CREATE TABLE IF NOT EXISTS catalog_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_expires_at ON catalog_cache(expires_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	CatalogCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names.
// Table names are interpolated into SQL, so anything else is rejected.
var ValidCacheTableNames = map[string]bool{
	CatalogTable: true,
}
