package bookpdf

import "sync"

// Cache stores generated stylesheets keyed by the structural hash of their
// resolved configuration. Implementations must be safe for concurrent use;
// two concurrent misses for the same key may both compute and insert, which
// wastes work but is never a correctness issue.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// memoryCache is the default in-process Cache. sync.Map fits the read-mostly
// access pattern: concurrent readers never block each other.
type memoryCache struct {
	entries sync.Map
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() Cache {
	return &memoryCache{}
}

func (c *memoryCache) Get(key string) (string, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *memoryCache) Put(key, value string) {
	c.entries.Store(key, value)
}
