package ingestion

import (
	"fmt"
	"sync"
	"testing"

	"github.com/papyrus-search/papyrus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(s string) core.Fingerprint {
	return core.FingerprintText(s)
}

func TestVectorCache_LookupInsert(t *testing.T) {
	c := NewVectorCache(10)

	_, ok := c.Lookup(fp("a"))
	assert.False(t, ok)

	c.Insert(fp("a"), []float32{1, 2, 3})
	got, ok := c.Lookup(fp("a"))
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)
	assert.Equal(t, 1, c.Len())
}

func TestVectorCache_InsertIsWriteOnce(t *testing.T) {
	c := NewVectorCache(10)

	c.Insert(fp("a"), []float32{1})
	c.Insert(fp("a"), []float32{9}) // lost race: must not overwrite

	got, ok := c.Lookup(fp("a"))
	require.True(t, ok)
	assert.Equal(t, []float32{1}, got)
	assert.Equal(t, 1, c.Len())
}

func TestVectorCache_CapacityNeverExceeded(t *testing.T) {
	c := NewVectorCache(3)

	for i := 0; i < 20; i++ {
		c.Insert(fp(fmt.Sprintf("key-%d", i)), []float32{float32(i)})
		assert.LessOrEqual(t, c.Len(), 3)
	}
	assert.Equal(t, 3, c.Len())
}

func TestVectorCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewVectorCache(2)

	c.Insert(fp("a"), []float32{1})
	c.Insert(fp("b"), []float32{2})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Lookup(fp("a"))
	require.True(t, ok)

	c.Insert(fp("c"), []float32{3})

	_, ok = c.Lookup(fp("a"))
	assert.True(t, ok, "recently used entry must survive")
	_, ok = c.Lookup(fp("b"))
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Lookup(fp("c"))
	assert.True(t, ok)
}

func TestVectorCache_InsertionOrderTieBreak(t *testing.T) {
	c := NewVectorCache(2)

	// Neither entry is ever looked up, so both share the same recency;
	// the earlier insert is evicted first.
	c.Insert(fp("first"), []float32{1})
	c.Insert(fp("second"), []float32{2})
	c.Insert(fp("third"), []float32{3})

	_, ok := c.Lookup(fp("first"))
	assert.False(t, ok)
	_, ok = c.Lookup(fp("second"))
	assert.True(t, ok)
}

func TestVectorCache_ConcurrentAccess(t *testing.T) {
	c := NewVectorCache(64)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fp(fmt.Sprintf("key-%d", i%100))
				if _, ok := c.Lookup(key); !ok {
					c.Insert(key, []float32{float32(i)})
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}

func TestNewVectorCache_MinimumCapacity(t *testing.T) {
	c := NewVectorCache(0)
	c.Insert(fp("a"), []float32{1})
	c.Insert(fp("b"), []float32{2})
	assert.Equal(t, 1, c.Len())
}
