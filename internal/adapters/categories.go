// Package adapters decorates gateway ports with cross-cutting behavior.
package adapters

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"racevault/internal/cache"
	"racevault/internal/core"
	"racevault/internal/gateway"
	"racevault/internal/metrics"
)

const categoriesKey = "categories"

// CachedCategories serves category reference data from an expiring cache.
// Concurrent misses share a single backend request.
type CachedCategories struct {
	next    gateway.CategoryStore
	cache   *cache.LRUCache[[]core.Category]
	group   singleflight.Group
	metrics *metrics.Metrics
}

var _ gateway.CategoryStore = (*CachedCategories)(nil)

func NewCachedCategories(next gateway.CategoryStore, ttl time.Duration, m *metrics.Metrics) *CachedCategories {
	return &CachedCategories{
		next:    next,
		cache:   cache.NewLRUCache[[]core.Category](1, ttl),
		metrics: m,
	}
}

// Cache exposes the underlying cache so it can be registered for sweeping.
func (c *CachedCategories) Cache() *cache.LRUCache[[]core.Category] { return c.cache }

func (c *CachedCategories) ListCategories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := c.cache.Get(categoriesKey); ok {
		c.metrics.CacheHit()
		return slices.Clone(cats), nil
	}
	c.metrics.CacheMiss()

	v, err, _ := c.group.Do(categoriesKey, func() (any, error) {
		cats, err := c.next.ListCategories(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Set(categoriesKey, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]core.Category)), nil
}

// Invalidate drops the cached list.
func (c *CachedCategories) Invalidate() {
	c.cache.Delete(categoriesKey)
}

// CachedGateway is a Gateway whose category reads go through a
// CachedCategories. Races and expenses are never cached.
type CachedGateway struct {
	gateway.Gateway
	Categories *CachedCategories
}

func NewCachedGateway(g gateway.Gateway, ttl time.Duration, m *metrics.Metrics) *CachedGateway {
	return &CachedGateway{Gateway: g, Categories: NewCachedCategories(g, ttl, m)}
}

func (g *CachedGateway) ListCategories(ctx context.Context) ([]core.Category, error) {
	return g.Categories.ListCategories(ctx)
}
