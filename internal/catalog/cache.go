// Package catalog caches, filters and completes the database catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// DefaultTTL is how long a fetched catalog stays fresh.
const DefaultTTL = 5 * time.Minute

// Fetcher loads the catalog from the backend.
type Fetcher interface {
	Catalog(ctx context.Context) (*core.Catalog, error)
}

// Cache holds the last fetched catalog. Concurrent callers of Get share a
// single fetch.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	value     *core.Catalog
	fetchedAt time.Time
}

// NewCache creates a cache. A non-positive ttl uses DefaultTTL.
func NewCache(fetcher Fetcher, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the cached catalog, fetching it when missing or stale.
func (c *Cache) Get(ctx context.Context) (*core.Catalog, error) {
	if cat, ok := c.fresh(); ok {
		return cat, nil
	}

	v, err, shared := c.group.Do("catalog", func() (any, error) {
		if cat, ok := c.fresh(); ok {
			return cat, nil
		}
		cat, err := c.fetcher.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = cat
		c.fetchedAt = c.now()
		c.mu.Unlock()
		c.logger.Debug("catalog fetched", slog.Int("databases", len(cat.Databases)))
		return cat, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if shared {
		c.logger.Debug("catalog fetch shared")
	}
	return v.(*core.Catalog), nil
}

// Peek returns the last fetched catalog even if it is stale.
func (c *Cache) Peek() (*core.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.value != nil
}

// Invalidate forces the next Get to fetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

func (c *Cache) fresh() (*core.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil || c.fetchedAt.IsZero() {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.value, true
}
