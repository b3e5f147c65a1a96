// Package ristretto backs the cache port with an in-process ristretto
// cache. The cost tracker keeps project totals behind it so repeated
// dashboard reads stay off the cost files between saves.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// avgEntryBytes sizes the admission counter table. Cached values are small
// formatted numbers and compact JSON, so a low estimate per entry keeps the
// counters dense enough.
const avgEntryBytes = 100

// Cache adapts ristretto to the cache port, costing every entry by its byte
// length so the configured limit bounds resident memory.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New builds a cache holding at most maxBytes of stored values.
func New(maxBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxBytes / avgEntryBytes * 10,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get reports the cached value and whether the key was present. Ristretto
// reads cannot fail; the error return satisfies the port.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value for ttl, costed at its byte length. Admission is
// best-effort, so a Set may be dropped; readers fall back to the store.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete drops the key so the next read refreshes from the store.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
