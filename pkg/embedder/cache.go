package embedder

import (
	"sync"
	"time"

	"github.com/meshgate/core/pkg/types"
)

const defaultTTL = 5 * time.Minute

type cacheEntry struct {
	vector     []float32
	insertedAt time.Time
}

// Cache is a TTL-bounded key→vector store. A read of an entry older
// than the TTL evicts it and reports a miss; a write always upserts
// and refreshes the insertion timestamp. There is no bound on the
// number of entries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   types.Clock
}

// NewCache returns an empty Cache with the given TTL. A zero TTL uses
// the 5 minute default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   types.RealClock{},
	}
}

// Get returns the cached vector for key, or (nil, false) on a miss or
// a stale entry. A stale entry is evicted as part of the read.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.insertedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.vector, true
}

// Set upserts key's vector, refreshing its insertion timestamp.
func (c *Cache) Set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{vector: vector, insertedAt: c.clock.Now()}
}

// Len reports the number of entries currently held, including any not
// yet evicted by a read past their TTL.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
