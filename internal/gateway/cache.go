package gateway

import (
	"fmt"
	"sync"
)

// cache keeps gateway responses for the lifetime of a client. State at a
// block nonce never changes, so entries do not expire.
type cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

func newCache[V any]() *cache[V] {
	return &cache[V]{entries: make(map[string]V)}
}

// cacheKey formats: "{address}@{blockNonce}"
func cacheKey(address string, blockNonce uint64) string {
	return fmt.Sprintf("%s@%d", address, blockNonce)
}

func (c *cache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	return v, ok
}

func (c *cache[V]) set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = v
}
