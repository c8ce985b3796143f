package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed           bool  // Whether the request is allowed
	CurrentCount      int64 // Current count in the window
	Limit             int64 // The limit that was checked
	RetryAfterSeconds int64 // Seconds until the window resets (0 if allowed)
}

// RateLimiter counts requests per key in fixed windows kept in the cache
// cluster. The counter update runs as one Lua script, so concurrent servers
// sharing the cluster see a single count per key.
type RateLimiter struct {
	redis  redis.Cmdable
	script *redis.Script
	logger Logger
}

// NewRateLimiter creates a rate limiter over a single node or a Ring
func NewRateLimiter(redisClient redis.Cmdable, logger Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// ClientKey is the counter key for one client on one route
func ClientKey(route, client string) string {
	return fmt.Sprintf("rate_limit:%s:%s", route, client)
}

// CheckClient counts a request from client against route's limit
func (r *RateLimiter) CheckClient(ctx context.Context, route, client string, limit int64, window time.Duration) (*RateLimitResult, error) {
	return r.checkLimit(ctx, ClientKey(route, client), limit, window)
}

// checkLimit executes the rate limit Lua script
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	result, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Int64Slice()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// {allowed, current_count, limit, retry_after}
	if len(result) != 4 {
		return nil, fmt.Errorf("unexpected script result format: %v", result)
	}

	rateLimitResult := &RateLimitResult{
		Allowed:           result[0] == 1,
		CurrentCount:      result[1],
		Limit:             result[2],
		RetryAfterSeconds: result[3],
	}

	if !rateLimitResult.Allowed {
		r.logger.Warn("rate limit exceeded",
			"key", key,
			"current", rateLimitResult.CurrentCount,
			"limit", limit,
			"retry_after", rateLimitResult.RetryAfterSeconds)
	} else {
		r.logger.Debug("rate limit check passed",
			"key", key,
			"current", rateLimitResult.CurrentCount,
			"limit", limit)
	}

	return rateLimitResult, nil
}

// GetCurrentCount returns current count without incrementing (for monitoring)
func (r *RateLimiter) GetCurrentCount(ctx context.Context, key string) (int64, error) {
	count, err := r.redis.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// ResetLimit clears a rate limit counter
func (r *RateLimiter) ResetLimit(ctx context.Context, key string) error {
	return r.redis.Del(ctx, key).Err()
}
