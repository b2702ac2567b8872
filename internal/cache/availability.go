// Package cache holds the Redis-backed availability cache.  Clients
// poll availability aggressively while choosing seats; caching the
// count for a short TTL keeps that traffic off the seats table without
// promising more freshness than the read path has anyway (counts are
// eventually consistent with respect to in-flight bookings).
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache caches per-show AVAILABLE seat counts.  A nil
// client disables the cache entirely; every method becomes a no-op
// miss so callers fall through to the database.
type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAvailabilityCache returns a cache with the given TTL.  rdb may be
// nil when Redis is unavailable.
func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func key(showID uint64) string {
	return "avail:show:" + strconv.FormatUint(showID, 10)
}

// Get returns the cached count and whether it was present.
func (c *AvailabilityCache) Get(ctx context.Context, showID uint64) (int64, bool) {
	if c.rdb == nil {
		return 0, false
	}
	v, err := c.rdb.Get(ctx, key(showID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the count for the configured TTL.  Errors are ignored;
// the cache is advisory.
func (c *AvailabilityCache) Set(ctx context.Context, showID uint64, count int64) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Set(ctx, key(showID), strconv.FormatInt(count, 10), c.ttl).Err()
}

// Invalidate drops the cached count after a reservation attempt
// touched the show, so pollers converge on the new count within one
// read instead of one TTL.
func (c *AvailabilityCache) Invalidate(ctx context.Context, showID uint64) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, key(showID)).Err()
}
