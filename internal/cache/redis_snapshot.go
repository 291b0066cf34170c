package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshot is an optional, disabled-by-default persistence hook for an
// LRU cache: on request it serializes the current entry set to a single
// Redis key and can restore from it on startup. This module's core never
// persists state to durable storage (the federation core's explicit
// non-goal), so nothing calls this unless a caller opts in by constructing
// one explicitly — grounded on
// evalgo-org-eve/db/repository/redis.go's SetCache/GetCache key-namespacing
// idiom, repurposed here as a snapshot rather than a per-key store.
type RedisSnapshot[T any] struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSnapshot wraps an existing go-redis client. Passing a nil client
// is not supported; callers who don't want the hook simply never construct
// one.
func NewRedisSnapshot[T any](client *redis.Client, key string, ttl time.Duration) *RedisSnapshot[T] {
	return &RedisSnapshot[T]{client: client, key: key, ttl: ttl}
}

type snapshotRecord[T any] struct {
	Key   string    `json:"key"`
	Entry Entry[T]  `json:"entry"`
}

// Save serializes every still-live entry in c to the snapshot key.
func (s *RedisSnapshot[T]) Save(ctx context.Context, c *LRU[T], now time.Time) error {
	c.mu.Lock()
	records := make([]snapshotRecord[T], 0, len(c.items))
	for key, el := range c.items {
		n := el.Value.(*node[T])
		if !n.entry.Valid(now) {
			continue
		}
		records = append(records, snapshotRecord[T]{Key: key, Entry: n.entry})
	}
	c.mu.Unlock()

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal cache snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("write cache snapshot to redis: %w", err)
	}
	return nil
}

// Restore loads a previously-saved snapshot back into c. A missing key is
// not an error: it simply means there is nothing to restore yet.
func (s *RedisSnapshot[T]) Restore(ctx context.Context, c *LRU[T], now time.Time) error {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache snapshot from redis: %w", err)
	}

	var records []snapshotRecord[T]
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("unmarshal cache snapshot: %w", err)
	}
	for _, r := range records {
		if r.Entry.Valid(now) {
			c.Set(r.Key, r.Entry, r.Entry.InsertedAt)
		}
	}
	return nil
}
