package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/lyzr/haystack/common/logger"
)

// noExpiry is the life window used when no TTL is configured
const noExpiry = 10 * 365 * 24 * time.Hour

// MaxEntryBytes is the largest value a cache must accept: a full size
// photo variant.
const MaxEntryBytes = 32 << 20

// MinMemoryCacheMB is the smallest bounded memory cache that holds a
// MaxEntryBytes value next to other entries in one shard.
const MinMemoryCacheMB = 2 * (MaxEntryBytes >> 20)

// maxShards matches bigcache's default shard count
const maxShards = 1024

// Cache interface for key-value storage.
// Get reports absence as (nil, false, nil); errors are reserved for the
// cache being unreachable or failing. Implementations are safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryCache is an in-process cache backed by bigcache
type MemoryCache struct {
	cache   *bigcache.BigCache
	ttl     time.Duration
	log     *logger.Logger
	ttlWarn sync.Once
}

// NewMemoryCache creates a new in-memory cache. ttl is the life window of
// every entry (0 = effectively never expire), sizeMB caps memory use
// (0 = unbounded).
func NewMemoryCache(ttl time.Duration, sizeMB int, log *logger.Logger) (*MemoryCache, error) {
	lifeWindow := ttl
	if lifeWindow <= 0 {
		lifeWindow = noExpiry
	}

	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.HardMaxCacheSize = sizeMB
	cfg.Shards = shardCount(sizeMB)
	cfg.Verbose = false
	if ttl <= 0 {
		cfg.CleanWindow = 0
	}

	bc, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}

	log.Info("memory cache configured", "size_mb", sizeMB, "shards", cfg.Shards, "ttl", ttl)

	return &MemoryCache{
		cache: bc,
		ttl:   ttl,
		log:   log,
	}, nil
}

// shardCount picks the largest power of two shard count that keeps every
// shard big enough for a MaxEntryBytes value. bigcache splits
// HardMaxCacheSize evenly across shards.
func shardCount(sizeMB int) int {
	if sizeMB <= 0 {
		return maxShards
	}
	shards := 1
	for shards < maxShards && sizeMB/(shards*2) >= MinMemoryCacheMB {
		shards *= 2
	}
	return shards
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memory cache get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value. bigcache has a single life window, so the per-call
// ttl is ignored; a ttl other than the configured one is logged once.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl != c.ttl {
		c.ttlWarn.Do(func() {
			c.log.Warn("memory cache ignores per-call ttl, entries use the configured life window",
				"requested_ttl", ttl, "life_window", c.ttl)
		})
	}
	if err := c.cache.Set(key, value); err != nil {
		return fmt.Errorf("memory cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	err := c.cache.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("memory cache delete %s: %w", key, err)
	}
	return nil
}

// Ping always succeeds for the in-process cache
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close releases the cache
func (c *MemoryCache) Close() error {
	c.log.Info("memory cache closed")
	return c.cache.Close()
}

// Stats returns cache statistics. Reported by the health endpoint.
func (c *MemoryCache) Stats() map[string]interface{} {
	s := c.cache.Stats()
	return map[string]interface{}{
		"entries": c.cache.Len(),
		"hits":    s.Hits,
		"misses":  s.Misses,
		"type":    "memory",
	}
}
