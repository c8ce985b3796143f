package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/haystack/common/bootstrap"
	"github.com/lyzr/haystack/common/ratelimit"
	"github.com/lyzr/haystack/common/resolution"
	"github.com/lyzr/haystack/common/store"
)

// commander is implemented by caches backed by a redis cluster
type commander interface {
	Commands() redis.Cmdable
}

// Container holds the request pipeline built once at startup
type Container struct {
	// Components
	Components *bootstrap.Components

	// Pipeline
	Resolver     *store.Resolver
	Orchestrator *resolution.Orchestrator

	// RateLimiter guards the pre-warm route; nil when disabled
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer wires the store resolver and the read-through pipeline
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components.Cache == nil {
		return nil, fmt.Errorf("cache server requires a cache")
	}
	if components.Stores == nil {
		return nil, fmt.Errorf("cache server requires store partitions")
	}

	resolver := store.NewResolver(components.Stores, components.Logger)
	orchestrator := resolution.NewOrchestrator(
		components.Cache,
		resolver,
		components.Config.Cache.TTL,
		components.Logger,
	)

	var limiter *ratelimit.RateLimiter
	if components.Config.RateLimit.CacheItLimit > 0 {
		if rc, ok := components.Cache.(commander); ok {
			limiter = ratelimit.NewRateLimiter(rc.Commands(), components.Logger)
		} else {
			components.Logger.Warn("rate limiting needs the redis cache backend, disabled",
				"backend", components.Config.Cache.Backend)
		}
	}

	components.Logger.Info("photo pipeline ready",
		"partitions", components.Stores.Len(),
		"cache_backend", components.Config.Cache.Backend,
		"rate_limited", limiter != nil,
	)

	return &Container{
		Components:   components,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		RateLimiter:  limiter,
	}, nil
}
