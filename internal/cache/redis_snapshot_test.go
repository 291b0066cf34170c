package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisSnapshotSaveAndRestoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	src := New[string](10)
	src.Set("a", Entry[string]{Value: "alpha", TTL: time.Hour}, now)
	src.Set("b", Entry[string]{Value: "beta", TTL: time.Hour}, now)

	snap := NewRedisSnapshot[string](client, "o8fed:test:snapshot", time.Hour)
	require.NoError(t, snap.Save(ctx, src, now))

	dst := New[string](10)
	require.NoError(t, snap.Restore(ctx, dst, now))

	entry, ok := dst.Get("a", now)
	require.True(t, ok)
	require.Equal(t, "alpha", entry.Value)

	entry, ok = dst.Get("b", now)
	require.True(t, ok)
	require.Equal(t, "beta", entry.Value)
}

func TestRedisSnapshotRestoreMissingKeyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t)
	now := time.Now()

	dst := New[string](10)
	snap := NewRedisSnapshot[string](client, "o8fed:test:absent", time.Hour)
	require.NoError(t, snap.Restore(ctx, dst, now))
	require.Equal(t, 0, dst.Len())
}

func TestRedisSnapshotSkipsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	client := newTestRedisClient(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	src := New[string](10)
	src.Set("stale", Entry[string]{Value: "old", TTL: time.Minute}, now)

	snap := NewRedisSnapshot[string](client, "o8fed:test:stale", time.Hour)
	later := now.Add(2 * time.Minute)
	require.NoError(t, snap.Save(ctx, src, later))

	dst := New[string](10)
	require.NoError(t, snap.Restore(ctx, dst, later))
	require.Equal(t, 0, dst.Len())
}
