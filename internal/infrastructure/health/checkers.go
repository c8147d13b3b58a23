package health

import (
	"context"
	"fmt"

	"github.com/avatarctic/kvstore/internal/core/ports"
	infraDB "github.com/avatarctic/kvstore/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// storeHealthChecker reports whether the key-value store schema is ready.
type storeHealthChecker struct{ store ports.Store }

func (s *storeHealthChecker) Name() string { return "store" }
func (s *storeHealthChecker) Check(ctx context.Context) error {
	if !s.store.IsInitialized() {
		return fmt.Errorf("store not initialized")
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewStoreHealthChecker creates a health checker for the key-value store.
func NewStoreHealthChecker(store ports.Store) ports.HealthChecker {
	return &storeHealthChecker{store: store}
}
