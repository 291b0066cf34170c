package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New[string](10)
	_, ok := c.Get("missing", time.Now())
	assert.False(t, ok)
}

func TestSetThenGetHits(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set("k", Entry[string]{Value: "v", TTL: time.Hour}, now)

	entry, ok := c.Get("k", now.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, "v", entry.Value)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set("k", Entry[string]{Value: "v", TTL: time.Minute}, now)

	_, ok := c.Get("k", now.Add(90*time.Second))
	assert.False(t, ok)
}

func TestGetDoesNotResetTTL(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set("k", Entry[string]{Value: "v", TTL: time.Minute}, now)

	// Read at 30s, still valid, should not push the expiry further out.
	_, ok := c.Get("k", now.Add(30*time.Second))
	require.True(t, ok)

	_, ok = c.Get("k", now.Add(90*time.Second))
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedOnOverflow(t *testing.T) {
	c := New[string](2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set("a", Entry[string]{Value: "a", TTL: time.Hour}, now)
	c.Set("b", Entry[string]{Value: "b", TTL: time.Hour}, now)

	// Touch "a" so "b" becomes the least-recently-used entry.
	_, _ = c.Get("a", now)
	c.Set("c", Entry[string]{Value: "c", TTL: time.Hour}, now)

	_, aOK := c.Get("a", now)
	_, bOK := c.Get("b", now)
	_, cOK := c.Get("c", now)
	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
	assert.Equal(t, 2, c.Len())
}

func TestUnboundedCacheWithZeroCapacityNeverEvicts(t *testing.T) {
	c := New[string](0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		c.Set(string(rune('a'+i%26))+"-extra", Entry[string]{Value: "v", TTL: time.Hour}, now)
	}
	assert.Greater(t, c.Len(), 1)
}

func TestClearEmptiesCache(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set("k", Entry[string]{Value: "v", TTL: time.Hour}, now)
	c.Clear()
	_, ok := c.Get("k", now)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoadCoalescesConcurrentMisses(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var loadCount int32
	loader := func() (string, error) {
		atomic.AddInt32(&loadCount, 1)
		time.Sleep(20 * time.Millisecond)
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrLoad("k", time.Hour, now, loader)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "loaded", r)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loadCount))
}

func TestGetOrLoadHitsCacheOnSecondCall(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var loadCount int32
	loader := func() (string, error) {
		atomic.AddInt32(&loadCount, 1)
		return "loaded", nil
	}

	_, err := c.GetOrLoad("k", time.Hour, now, loader)
	require.NoError(t, err)
	_, err = c.GetOrLoad("k", time.Hour, now.Add(time.Second), loader)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&loadCount))
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	c := New[string](10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	loader := func() (string, error) {
		return "", errors.New("boom")
	}

	_, err := c.GetOrLoad("k", time.Hour, now, loader)
	assert.Error(t, err)

	// Error results are not cached: the next call must invoke loader again.
	var called bool
	_, err = c.GetOrLoad("k", time.Hour, now, func() (string, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
