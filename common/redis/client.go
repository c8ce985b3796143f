package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps a redis command interface (single node or Ring) with
// common operations and instrumentation
type Client struct {
	redis  redis.Cmdable
	logger Logger
}

// NewClient creates a new Redis client wrapper
func NewClient(redisClient redis.Cmdable, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// GetBytes retrieves a value by key. A missing key is reported as
// found=false with a nil error.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("redis GET key not found", "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	c.logger.Debug("redis GET", "key", key, "size", len(val))
	return val, true, nil
}

// Set sets a key with optional expiration (0 = no expiration)
func (c *Client) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	err := c.redis.Set(ctx, key, value, expiry).Err()
	if err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	if expiry > 0 {
		c.logger.Debug("redis SET", "key", key, "size", len(value), "expiry", expiry)
	} else {
		c.logger.Debug("redis SET", "key", key, "size", len(value))
	}
	return nil
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	err := c.redis.Del(ctx, keys...).Err()
	if err != nil {
		c.logger.Error("redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	c.logger.Debug("redis DEL", "keys", keys)
	return nil
}

// Ping checks connectivity. On a Ring every shard is pinged.
func (c *Client) Ping(ctx context.Context) error {
	if ring, ok := c.redis.(*redis.Ring); ok {
		return ring.ForEachShard(ctx, func(ctx context.Context, shard *redis.Client) error {
			if err := shard.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping shard %s: %w", shard.Options().Addr, err)
			}
			return nil
		})
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
