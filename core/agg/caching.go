package agg

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/robustscore/internal/contract"
	"github.com/huangsam/robustscore/schema"
)

// currentCacheVersion defines the version of the cache schema.
const currentCacheVersion = 1

// cacheTTL bounds how long an aggregate stays valid.
const cacheTTL = 7 * 24 * time.Hour

// CachedAggregateBuckets returns the buckets for table, reusing a cached
// aggregate when the input fingerprint and the aggregation options match.
// A nil store or an empty fingerprint bypasses the cache.
func CachedAggregateBuckets(table *schema.MetricTable, opts schema.Options, store contract.CacheStore, fingerprint string) ([]schema.Bucket, error) {
	if store == nil || fingerprint == "" {
		return AggregateBuckets(table, opts)
	}

	// The configured columns must exist even when the aggregate is cached.
	if _, err := resolveColumns(table, opts); err != nil {
		return nil, err
	}

	key := generateCacheKey(opts, fingerprint)
	if buckets := checkCacheHit(store, key); buckets != nil {
		contract.LogDebug("aggregate cache hit", "key", key[:12])
		return buckets, nil
	}
	return computeAndStore(table, opts, store, key)
}

// checkCacheHit attempts to retrieve and validate a cached result.
func checkCacheHit(store contract.CacheStore, key string) []schema.Bucket {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil
	}

	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	var buckets []schema.Bucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil
	}
	return buckets
}

// computeAndStore aggregates the table and stores the result in the cache.
func computeAndStore(table *schema.MetricTable, opts schema.Options, store contract.CacheStore, key string) ([]schema.Bucket, error) {
	buckets, err := AggregateBuckets(table, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(buckets); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to store aggregate in cache", err)
		}
	}
	return buckets, nil
}

// generateCacheKey hashes every option that changes the aggregate. Decay
// rates are applied after aggregation and are deliberately left out.
func generateCacheKey(opts schema.Options, fingerprint string) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s",
		fingerprint,
		strings.Join(opts.GroupColumns, ","),
		opts.TransformColumn,
		opts.SeverityColumn,
		opts.Metrics.String(),
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
