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

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize cache (if not skipped)
	if !options.skipCache {
		if options.customCache != nil {
			components.Cache = options.customCache
		} else {
			components.Cache, err = newCache(components.Config.Cache, components.Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create cache: %w", err)
			}
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 4. Connect store partitions (if not skipped)
	if !options.skipStore {
		storeCfg := components.Config.Store
		dialer := options.dialer
		if dialer == nil {
			dialer = store.PostgresDialer(storeCfg, components.Logger)
		}

		managerOpts := append([]store.ManagerOption{
			store.WithConnectAttempts(storeCfg.ConnectAttempts),
			store.WithConnectBackoff(storeCfg.ConnectBackoff),
		}, options.managerOpts...)

		components.Logger.Info("connecting store partitions",
			"partitions", storeCfg.Partitions,
			"attempts", storeCfg.ConnectAttempts,
			"backoff", storeCfg.ConnectBackoff,
		)
		components.Stores = store.NewManager(dialer, components.Logger, managerOpts...)
		components.Stores.ConnectAll(ctx, storeCfg.Partitions)

		components.addCleanup(func() error {
			components.Logger.Info("closing store partitions")
			components.Stores.Close()
			return nil
		})
	}

	// 5. Initialize telemetry (if not skipped)
	if !options.skipTelemetry {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(serviceName, components.Config.Telemetry, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}

		components.addCleanup(func() error {
			return components.Telemetry.Shutdown(context.Background())
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"cache", components.Cache != nil,
		"store_partitions", len(components.Partitions()),
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}

func newCache(cfg config.CacheConfig, log *logger.Logger) (cache.Cache, error) {
	log.Info("initializing cache", "backend", cfg.Backend, "endpoints", cfg.Endpoints)

	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.TTL, cfg.SizeMB, log)
	case "redis":
		return cache.NewRedisCache(cfg.Endpoints, cfg.Password, log)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
