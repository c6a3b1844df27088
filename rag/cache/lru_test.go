package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache[string, int](3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	// Touch "a" so "b" becomes the eviction victim.
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.SetWithTTL("short", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestLRUCacheRemoveAndClear(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("a", 1)
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))

	c.Set("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheUpdateExistingKey(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("a", 2)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.Size())
}
