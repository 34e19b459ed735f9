// Package ristretto backs the cache port with an in-process
// dgraph-io/ristretto cache. Arbiter uses it to replay idempotent
// responses to retried operator commands.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// avgEntryBytes sizes the admission counters: roughly one cached response
// per kilobyte of budget, with 10x counters per expected entry.
const avgEntryBytes = 1024

// Cache implements cache.Cache over ristretto. Admission is asynchronous,
// so a Set may not be immediately visible; callers treat the cache as
// best-effort.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New creates a cache bounded to maxCostBytes of stored value bytes.
func New(maxCostBytes int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		MaxCost:     maxCostBytes,
		NumCounters: maxCostBytes / avgEntryBytes * 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.inner.Get(key)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}
