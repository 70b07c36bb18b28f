package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalsearch/legalrag/schema"
)

func TestLRUBasics(t *testing.T) {
	c := NewLRU(2, time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now the oldest and gets evicted.
	c.Set("c", 3, 0)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU(10, time.Minute)
	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLRUNoDefaultTTLNeverExpires(t *testing.T) {
	c := NewLRU(10, 0)
	c.Set("k", "v", 0)
	time.Sleep(2 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRU(10, 0)
	c.Set("k", "v", 0)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("x", 1, 0)
	c.Set("y", 2, 0)
	c.Purge()
	assert.Zero(t, c.Len())
}

func TestAnalysisCachePutOnce(t *testing.T) {
	c := NewAnalysisCache(10)
	first := &schema.AnalysisResult{Summary: "一审判决支持原告"}
	second := &schema.AnalysisResult{Summary: "二审改判"}

	require.NoError(t, c.Put("case-7", first))
	err := c.Put("case-7", second)
	require.ErrorIs(t, err, ErrExists)

	got, ok := c.Get("case-7")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestAnalysisCacheInvalidate(t *testing.T) {
	c := NewAnalysisCache(10)
	require.NoError(t, c.Put("case-7", &schema.AnalysisResult{Summary: "s"}))
	c.Invalidate("case-7")
	_, ok := c.Get("case-7")
	assert.False(t, ok)
	// A fresh Put after invalidation succeeds.
	require.NoError(t, c.Put("case-7", &schema.AnalysisResult{Summary: "s2"}))
}
