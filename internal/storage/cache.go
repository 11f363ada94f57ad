package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/models"
)

// Cached is a read-through cache in front of a Provider. Entries are immutable,
// so a cached value never needs invalidation except on Remove.
type Cached struct {
	inner Provider
	cache *ristretto.Cache[string, models.Entry]
}

var _ Provider = (*Cached)(nil)

// NewCached wraps inner with a ristretto cache bounded by maxCost bytes.
func NewCached(inner Provider, numCounters, maxCost int64) (*Cached, error) {
	if numCounters <= 0 {
		numCounters = 1e5
	}
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, models.Entry]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func entryCost(e models.Entry) int64 {
	return int64(len(e.Type) + len(e.Content))
}

// Put stores e and primes the cache.
func (c *Cached) Put(ctx context.Context, e models.Entry) (models.Address, error) {
	addr, err := c.inner.Put(ctx, e)
	if err != nil {
		return "", err
	}
	c.cache.Set(string(addr), e, entryCost(e))
	return addr, nil
}

// Get serves from the cache, falling back to the inner provider.
func (c *Cached) Get(ctx context.Context, addr models.Address) (models.Entry, error) {
	if e, ok := c.cache.Get(string(addr)); ok {
		metrics.CacheHits.Inc()
		return e, nil
	}
	metrics.CacheMisses.Inc()
	e, err := c.inner.Get(ctx, addr)
	if err != nil {
		return models.Entry{}, err
	}
	c.cache.Set(string(addr), e, entryCost(e))
	return e, nil
}

// Has consults the cache before the inner provider.
func (c *Cached) Has(ctx context.Context, addr models.Address) (bool, error) {
	if _, ok := c.cache.Get(string(addr)); ok {
		return true, nil
	}
	return c.inner.Has(ctx, addr)
}

// Remove evicts addr and removes it from the inner provider.
func (c *Cached) Remove(ctx context.Context, addr models.Address) error {
	c.cache.Del(string(addr))
	return c.inner.Remove(ctx, addr)
}

// Wait blocks until buffered cache writes are applied.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close closes the cache and the inner provider.
func (c *Cached) Close() error {
	c.cache.Close()
	return c.inner.Close()
}
