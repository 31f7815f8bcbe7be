// Package cache holds decoded query results for one process. Keys are
// derived from (entity, address, digest of the locker key), so switching
// accounts or re-deriving a key after reconnect invalidates all prior
// cached reads without ever placing raw key material in the key space.
package cache

import (
	"strings"
	"sync"

	"github.com/suilocker/suilocker/internal/cryptox"
)

// Key builds a cache key for the given entity under one authenticated
// session. lockerKey may be empty for unauthenticated queries; it is
// digested, never embedded.
func Key(entity, address, lockerKey string) string {
	return entity + ":" + address + ":" + cryptox.Digest([]byte(lockerKey))
}

// Cache is a goroutine-safe in-memory store. All cryptographic and
// network work happens before Set; the cache itself only copies
// references, so stored values must be treated as immutable.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func New() *Cache {
	return &Cache{entries: make(map[string]any)}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// InvalidatePrefix drops every entry whose key starts with prefix.
// Mutations invalidate by entity prefix so all queries touching the
// affected vault or address are re-fetched.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Clear drops everything. Called on disconnect.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}
