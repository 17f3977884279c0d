package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMissThenHitAfterAdd(t *testing.T) {
	c := New[string, int](4)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Add("a", 1)
	v, ok := c.Get("a")
	require := assert.New(t)
	require.True(ok)
	require.Equal(1, v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestZeroCapacityDisablesCaching(t *testing.T) {
	c := New[string, int](0)
	c.Add("a", 1)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, string](2)
	c.Add(1, "a")
	c.Add(2, "b")
	c.Get(1) // touch 1, making 2 the LRU entry
	c.Add(3, "c")

	_, ok := c.Get(2)
	assert.False(t, ok, "least-recently-used entry should have been evicted")

	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestPurgeEmptiesWithoutResettingStats(t *testing.T) {
	c := New[string, int](4)
	c.Add("a", 1)
	c.Get("a")

	c.Purge()

	assert.Equal(t, 0, c.Len())
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
}
