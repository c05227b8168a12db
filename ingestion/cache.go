package ingestion

import (
	"sync"

	"github.com/papyrus-search/papyrus/core"
)

// VectorCache is a content-addressed store of computed embeddings, shared by
// every in-flight worker. The key is the fingerprint of a chunk's normalized
// text, so identical text anywhere in the corpus is embedded once.
//
// Eviction is least-recently-used: a lookup hit refreshes an entry, an insert
// over capacity evicts the stalest entry. Ties in recency fall back to
// insertion order. Entries are write-once: inserting an existing key is a
// no-op, since vectors for the same fingerprint derive from the same text.
type VectorCache struct {
	mu         sync.Mutex
	entries    map[core.Fingerprint][]float32
	order      []core.Fingerprint // least recently used first
	maxEntries int
}

// NewVectorCache creates a cache bounded to maxEntries.
func NewVectorCache(maxEntries int) *VectorCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &VectorCache{
		entries:    make(map[core.Fingerprint][]float32),
		order:      make([]core.Fingerprint, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Lookup returns the cached vector for key and refreshes its recency.
func (c *VectorCache) Lookup(key core.Fingerprint) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vector, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToEnd(key)
	return vector, true
}

// Insert stores a newly computed vector. If another worker inserted the same
// key first the call is a no-op; the present value wins and its recency is
// not refreshed.
func (c *VectorCache) Insert(key core.Fingerprint, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = vector
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *VectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *VectorCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *VectorCache) moveToEnd(key core.Fingerprint) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}
