// Package cache provides a redis read-through decorator over the catalog
// store for the presentation read paths (pick lists, record lookups).
//
// Mutating decision paths must not see stale reference data, so the
// hierarchy validator is always wired to the underlying store directly;
// only the read-only HTTP endpoints go through this decorator.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sigrh/internal/catalog"
	id "sigrh/pkg/domain"
)

// Cache decorates a catalog.Store with TTL'd redis entries. Misses are
// collapsed with singleflight so a cold key triggers one upstream read no
// matter how many requests race on it. Redis failures degrade to the
// underlying store; the cache never turns a working catalog into an outage.
type Cache struct {
	inner  catalog.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

func New(inner catalog.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cache) GetCorps(ctx context.Context, corpsID id.CorpsID) (*catalog.Corps, error) {
	return fetch(ctx, c, "catalog:corps:"+corpsID.String(), func() (*catalog.Corps, error) {
		return c.inner.GetCorps(ctx, corpsID)
	})
}

func (c *Cache) GetGrade(ctx context.Context, gradeID id.GradeID) (*catalog.Grade, error) {
	return fetch(ctx, c, "catalog:grade:"+gradeID.String(), func() (*catalog.Grade, error) {
		return c.inner.GetGrade(ctx, gradeID)
	})
}

func (c *Cache) GetPayScale(ctx context.Context, payScaleID id.PayScaleID) (*catalog.PayScale, error) {
	return fetch(ctx, c, "catalog:payscale:"+payScaleID.String(), func() (*catalog.PayScale, error) {
		return c.inner.GetPayScale(ctx, payScaleID)
	})
}

func (c *Cache) GetStep(ctx context.Context, stepID id.StepID) (*catalog.Step, error) {
	return fetch(ctx, c, "catalog:step:"+stepID.String(), func() (*catalog.Step, error) {
		return c.inner.GetStep(ctx, stepID)
	})
}

func (c *Cache) ListCorps(ctx context.Context) ([]*catalog.Corps, error) {
	return fetch(ctx, c, "catalog:corps", func() ([]*catalog.Corps, error) {
		return c.inner.ListCorps(ctx)
	})
}

func (c *Cache) ListGrades(ctx context.Context) ([]*catalog.Grade, error) {
	return fetch(ctx, c, "catalog:grades", func() ([]*catalog.Grade, error) {
		return c.inner.ListGrades(ctx)
	})
}

func (c *Cache) ListPayScales(ctx context.Context, category catalog.Category, gradeID id.GradeID) ([]*catalog.PayScale, error) {
	key := fmt.Sprintf("catalog:payscales:%s:%s", category, gradeID)
	return fetch(ctx, c, key, func() ([]*catalog.PayScale, error) {
		return c.inner.ListPayScales(ctx, category, gradeID)
	})
}

func (c *Cache) ListSteps(ctx context.Context, payScaleID id.PayScaleID) ([]*catalog.Step, error) {
	return fetch(ctx, c, "catalog:steps:"+payScaleID.String(), func() ([]*catalog.Step, error) {
		return c.inner.ListSteps(ctx, payScaleID)
	})
}

// fetch reads the key from redis, falling back to load on miss or redis
// error. Loaded values are written back with the configured TTL. NotFound
// results are not cached: catalog rows appear via back-office loads and a
// negative entry would mask them for a full TTL.
func fetch[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	var zero T

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
		return load()
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		loaded, err := load()
		if err != nil {
			return zero, err
		}
		if encoded, err := json.Marshal(loaded); err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
			}
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
