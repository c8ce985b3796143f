package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/logger"
)

// DB wraps pgxpool for one store partition
type DB struct {
	*pgxpool.Pool
	address string
	log     *logger.Logger
}

// New opens a connection pool to the partition at address and selects the
// configured keyspace (the Postgres search_path) for every connection.
func New(ctx context.Context, cfg config.StoreConfig, address string, log *logger.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PartitionURL(address))
	if err != nil {
		return nil, fmt.Errorf("parse partition URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime
	if cfg.Keyspace != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = cfg.Keyspace
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// pgxpool connects lazily; force one round trip
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping partition %s: %w", address, err)
	}

	log.Info("store partition connected", "address", address, "db", cfg.Database, "keyspace", cfg.Keyspace)

	return &DB{
		Pool:    pool,
		address: address,
		log:     log,
	}, nil
}

// Address returns the partition address this pool is connected to
func (db *DB) Address() string {
	return db.address
}

// Close closes the connection pool
func (db *DB) Close() {
	db.log.Info("closing store partition pool", "address", db.address)
	db.Pool.Close()
}

// Health checks partition health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.Pool.Ping(ctx)
}
