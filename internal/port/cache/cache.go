// Package cache defines the port for the in-process response cache.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with a TTL. The ok
// result of Get distinguishes a miss from an empty value.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
