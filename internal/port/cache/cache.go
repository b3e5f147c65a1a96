// Package cache defines the byte-value cache port. The cost tracker keeps
// project totals behind it so frequent reads stay off the cost files.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store for small serialized values. Entries may
// be evicted before their TTL; callers must treat every miss as a cue to
// reload from the durable store.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value until ttl elapses or the entry is evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops the key so the next read refreshes from the store.
	Delete(ctx context.Context, key string) error
}
