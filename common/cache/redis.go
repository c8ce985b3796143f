package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/haystack/common/logger"
	rediscommon "github.com/lyzr/haystack/common/redis"
)

// RedisCache is the cache cluster client. Keys are spread over the
// configured endpoints by a go-redis Ring, which hashes keys onto shards
// by rendezvous hashing over shard names. Shards are named by their
// address, so every client configured with the same endpoint set routes a
// key to the same endpoint regardless of list order.
type RedisCache struct {
	ring   *redis.Ring
	client *rediscommon.Client
	log    *logger.Logger
}

// NewRedisCache creates a cache client over the given endpoints
func NewRedisCache(endpoints []string, password string, log *logger.Logger) (*RedisCache, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("redis cache requires at least one endpoint")
	}

	addrs := make(map[string]string, len(endpoints))
	for _, ep := range endpoints {
		if _, dup := addrs[ep]; dup {
			return nil, fmt.Errorf("duplicate cache endpoint %s", ep)
		}
		addrs[ep] = ep
	}

	ring := redis.NewRing(&redis.RingOptions{
		Addrs:    addrs,
		Password: password,
	})

	log.Info("cache cluster configured", "endpoints", endpoints)

	return &RedisCache{
		ring:   ring,
		client: rediscommon.NewClient(ring, log),
		log:    log,
	}, nil
}

// Get retrieves a value from the shard owning key
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.client.GetBytes(ctx, key)
}

// Set stores a value on the shard owning key (0 ttl = no expiration)
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl)
}

// Delete removes a value
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, key)
}

// Ping checks every shard
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close closes all shard connections
func (c *RedisCache) Close() error {
	c.log.Info("closing cache cluster client")
	return c.ring.Close()
}

// Commands exposes the Ring for features sharing the cluster, such as
// rate limit counters
func (c *RedisCache) Commands() redis.Cmdable {
	return c.ring
}
