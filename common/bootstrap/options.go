package bootstrap

import (
	"github.com/lyzr/haystack/common/cache"
	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/store"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStore     bool
	skipCache     bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	customCache   cache.Cache
	dialer        store.Dialer
	managerOpts   []store.ManagerOption
}

// WithoutStore skips connecting to the store partitions.
// The directory server never reads the store.
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithCache uses c instead of building a cache from config
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.customCache = c
	}
}

// WithDialer replaces the Postgres partition dialer
func WithDialer(d store.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithManagerOptions passes extra options to the store connection manager
func WithManagerOptions(opts ...store.ManagerOption) Option {
	return func(o *options) {
		o.managerOpts = append(o.managerOpts, opts...)
	}
}

func defaultOptions() *options {
	return &options{}
}
