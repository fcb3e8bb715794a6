// Package cache is a read-through redis cache for dashboard read models.
// Writers never update cached payloads in place; they bump a version
// counter so every key built from the old version simply stops being
// read and ages out via TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital_crm_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const versionKey = "dashboard:version"

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// New wraps rdb. A nil client disables caching: Get always misses and
// Set and Bump are no-ops.
func New(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

func (c *Cache) key(ctx context.Context, name string) string {
	version, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("dashboard cache version read failed", "error", err)
	}
	return fmt.Sprintf("dashboard:%d:%s", version, name)
}

// Get returns the cached payload for name at the current version.
func (c *Cache) Get(ctx context.Context, name string) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	payload, err := c.rdb.Get(ctx, c.key(ctx, name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("dashboard cache read failed", "key", name, "error", err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under name at the current version with the
// configured TTL. Failures are logged; the caller already holds the
// freshly computed value.
func (c *Cache) Set(ctx context.Context, name string, payload []byte) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(ctx, name), payload, c.ttl).Err(); err != nil {
		c.log.Warn("dashboard cache write failed", "key", name, "error", err)
	}
}

// Bump invalidates every cached dashboard payload by advancing the
// version counter.
func (c *Cache) Bump(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		c.log.Warn("dashboard cache invalidation failed", "error", err)
	}
}
