package utils

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/epicdata/stockroom_backend/config"
)

// Cache key families. Search and stats results are short-lived; a catalog
// import invalidates everything under "catalog:".
const (
	CacheKeySearchPrefix = "catalog:search:"
	CacheKeyStats        = "catalog:stats"

	CacheTTLShort  = time.Minute
	CacheTTLMedium = 5 * time.Minute
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN_MINUTES"))
	if err != nil {
		return CacheTTLMedium
	}
	return time.Duration(lifespan) * time.Minute
}

// SearchCacheKey hashes the query so arbitrary input stays a bounded key.
func SearchCacheKey(query string) string {
	sum := md5.Sum([]byte(query))
	return CacheKeySearchPrefix + hex.EncodeToString(sum[:])[:8]
}

func FetchCached(key string, dest interface{}) bool {
	found, err := config.GetRedisObject(key, dest)
	if err != nil {
		config.LogError(config.GetLogger(), "utils", "FetchCached", "cache read failed", key, err)
		return false
	}
	return found
}

func StoreCached(key string, obj interface{}, ttl time.Duration) {
	if err := config.SetRedisObject(key, obj, ttl); err != nil {
		config.LogError(config.GetLogger(), "utils", "StoreCached", "cache write failed", key, err)
	}
}

// InvalidateCatalogCache drops every cached search/stats entry. Called after
// any import or stock mutation that changes what searches would return.
func InvalidateCatalogCache() {
	if err := config.RemoveRedisKeysByPattern("catalog:*"); err != nil {
		config.LogError(config.GetLogger(), "utils", "InvalidateCatalogCache", "cache invalidation failed", nil, err)
	}
}

// InvalidateStatsCache drops only the aggregate stats entry. Finalization
// moves reservations without touching search-relevant fields, so cached
// search results stay valid.
func InvalidateStatsCache() {
	if err := config.RemoveRedisKey(CacheKeyStats); err != nil {
		config.LogError(config.GetLogger(), "utils", "InvalidateStatsCache", "cache invalidation failed", CacheKeyStats, err)
	}
}
