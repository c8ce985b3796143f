package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/haystack/common/cache"
	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/store"
	"github.com/lyzr/haystack/common/telemetry"
)

// Components holds all initialized service dependencies. They are built
// once per process and shared by every request.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Cache     cache.Cache
	Stores    *store.Manager
	Telemetry *telemetry.Telemetry

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the cache. Store partitions are reported individually by
// Partitions, since a fatal partition does not make the service unhealthy.
func (c *Components) Health(ctx context.Context) error {
	if c.Cache != nil {
		if err := c.Cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache unhealthy: %w", err)
		}
	}
	return nil
}

// Partitions reports store partition availability (nil without a store)
func (c *Components) Partitions() []store.PartitionStatus {
	if c.Stores == nil {
		return nil
	}
	return c.Stores.Partitions()
}

// CacheStats returns the cache's counters when the backend keeps them
// (the memory cache does, redis does not).
func (c *Components) CacheStats() map[string]interface{} {
	if s, ok := c.Cache.(interface{ Stats() map[string]interface{} }); ok {
		return s.Stats()
	}
	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
