package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinMemoryCacheMB is the smallest bounded memory cache that fits a full
// size photo (32 MiB) in one shard next to other entries
const MinMemoryCacheMB = 64

// Default ports used when an endpoint is configured without one
const (
	DefaultCachePort = 6379
	DefaultStorePort = 5432
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Cache     CacheConfig
	Store     StoreConfig
	Directory DirectoryConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// CacheConfig holds the cache cluster settings
type CacheConfig struct {
	Backend   string // "redis" or "memory"
	Endpoints []string
	Password  string
	TTL       time.Duration
	SizeMB    int
}

// StoreConfig holds the settings shared by every store partition.
// Partitions is ordered: the position of an address is its machine_id.
type StoreConfig struct {
	Partitions      []string
	Port            int
	Database        string
	User            string
	Password        string
	Keyspace        string
	MaxConns        int
	MinConns        int
	MaxIdleTime     time.Duration
	MaxLifetime     time.Duration
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

// DirectoryConfig holds directory cache settings
type DirectoryConfig struct {
	LoadBalancerHost string
}

// RateLimitConfig bounds pre-warm requests per client. A zero limit
// disables limiting.
type RateLimitConfig struct {
	CacheItLimit int64
	Window       time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
	EnableTracing bool
}

// Load loads configuration from the environment and, when HAYSTACK_CONFIG
// names a file, from that file. Environment variables win.
func Load(serviceName string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path := v.GetString("HAYSTACK_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return FromViper(v, serviceName)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper, serviceName string) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        v.GetInt("PORT"),
			Environment: v.GetString("ENVIRONMENT"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			LogFormat:   v.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Backend:   v.GetString("CACHE_BACKEND"),
			Endpoints: withDefaultPort(getSlice(v, "CACHE_IPS"), DefaultCachePort),
			Password:  v.GetString("CACHE_PASSWORD"),
			TTL:       v.GetDuration("CACHE_TTL"),
			SizeMB:    v.GetInt("CACHE_SIZE_MB"),
		},
		Store: StoreConfig{
			Partitions:      getSlice(v, "STORE_IPS"),
			Port:            v.GetInt("STORE_PORT"),
			Database:        v.GetString("STORE_DB"),
			User:            v.GetString("STORE_USER"),
			Password:        v.GetString("STORE_PASSWORD"),
			Keyspace:        v.GetString("STORE_KEYSPACE"),
			MaxConns:        v.GetInt("STORE_MAX_CONNS"),
			MinConns:        v.GetInt("STORE_MIN_CONNS"),
			MaxIdleTime:     v.GetDuration("STORE_MAX_IDLE_TIME"),
			MaxLifetime:     v.GetDuration("STORE_MAX_LIFETIME"),
			ConnectAttempts: v.GetInt("STORE_CONNECT_ATTEMPTS"),
			ConnectBackoff:  v.GetDuration("STORE_CONNECT_BACKOFF"),
		},
		Directory: DirectoryConfig{
			LoadBalancerHost: v.GetString("CACHE_LB_IP"),
		},
		RateLimit: RateLimitConfig{
			CacheItLimit: v.GetInt64("RATE_LIMIT_CACHEIT"),
			Window:       v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   v.GetBool("ENABLE_PPROF"),
			PprofPort:     v.GetInt("PPROF_PORT"),
			EnableMetrics: v.GetBool("ENABLE_METRICS"),
			MetricsPort:   v.GetInt("METRICS_PORT"),
			EnableTracing: v.GetBool("ENABLE_TRACING"),
		},
	}

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("CACHE_BACKEND", "redis")
	v.SetDefault("CACHE_IPS", "localhost")
	v.SetDefault("CACHE_TTL", time.Duration(0))
	v.SetDefault("CACHE_SIZE_MB", 512)

	v.SetDefault("STORE_IPS", "")
	v.SetDefault("STORE_PORT", DefaultStorePort)
	v.SetDefault("STORE_DB", "haystack")
	v.SetDefault("STORE_USER", "haystack")
	v.SetDefault("STORE_PASSWORD", "haystack")
	v.SetDefault("STORE_KEYSPACE", "haystack")
	v.SetDefault("STORE_MAX_CONNS", 20)
	v.SetDefault("STORE_MIN_CONNS", 2)
	v.SetDefault("STORE_MAX_IDLE_TIME", 30*time.Minute)
	v.SetDefault("STORE_MAX_LIFETIME", time.Hour)
	v.SetDefault("STORE_CONNECT_ATTEMPTS", 20)
	v.SetDefault("STORE_CONNECT_BACKOFF", 5*time.Second)

	v.SetDefault("CACHE_LB_IP", "localhost")

	v.SetDefault("RATE_LIMIT_CACHEIT", 0)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("ENABLE_PPROF", false)
	v.SetDefault("PPROF_PORT", 6060)
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("METRICS_PORT", 9090)
	v.SetDefault("ENABLE_TRACING", true)
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Cache.Backend {
	case "redis":
		if len(c.Cache.Endpoints) == 0 {
			return fmt.Errorf("at least one cache endpoint is required")
		}
	case "memory":
		// one bigcache shard must hold a full size photo
		if c.Cache.SizeMB < 0 || (c.Cache.SizeMB > 0 && c.Cache.SizeMB < MinMemoryCacheMB) {
			return fmt.Errorf("memory cache size must be 0 (unbounded) or at least %d MB, got %d", MinMemoryCacheMB, c.Cache.SizeMB)
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if c.Store.MaxConns < c.Store.MinConns {
		return fmt.Errorf("store max_conns must be >= min_conns")
	}

	if c.Store.ConnectAttempts < 1 {
		return fmt.Errorf("store connect attempts must be >= 1, got %d", c.Store.ConnectAttempts)
	}

	if c.Store.ConnectBackoff < 0 {
		return fmt.Errorf("store connect backoff must not be negative")
	}

	if c.RateLimit.CacheItLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit.CacheItLimit)
	}

	if c.RateLimit.CacheItLimit > 0 && c.RateLimit.Window < time.Second {
		return fmt.Errorf("rate limit window must be at least 1s, got %s", c.RateLimit.Window)
	}

	return nil
}

// PartitionURL returns the PostgreSQL connection string for one store partition
func (c *StoreConfig) PartitionURL(address string) string {
	host, port := address, c.Port
	if h, p, err := net.SplitHostPort(address); err == nil {
		host = h
		fmt.Sscanf(p, "%d", &port)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(host, fmt.Sprint(port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// getSlice reads a list value. Environment values are comma separated,
// file values may be native lists.
func getSlice(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	default:
		items = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func withDefaultPort(endpoints []string, port int) []string {
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, _, err := net.SplitHostPort(ep); err != nil {
			ep = net.JoinHostPort(ep, fmt.Sprint(port))
		}
		out = append(out, ep)
	}
	return out
}
