// Package ratelimit implements the dual per-minute/per-hour token-bucket
// admission check each provider runs before any outbound call (spec §4.6,
// component C6).
package ratelimit

import (
	"sync"
	"time"
)

// Config sets the capacity of each of the two buckets. A zero value in
// either field means that period is unbounded (admission always succeeds
// for it).
type Config struct {
	PerMinute int
	PerHour   int
}

// bucket holds a fractional token count, refilled lazily on each Admit
// call rather than on a ticker, per spec §4.6's refill formula.
type bucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per millisecond
	lastRefill time.Time
}

func newBucket(capacity int, periodMs float64, now time.Time) *bucket {
	c := float64(capacity)
	return &bucket{
		capacity:   c,
		tokens:     c,
		refillRate: c / periodMs,
		lastRefill: now,
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Milliseconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += float64(elapsed) * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// msUntilOneToken returns how many milliseconds must elapse before this
// bucket holds at least one full token.
func (b *bucket) msUntilOneToken() int64 {
	if b.refillRate <= 0 {
		return 0
	}
	deficit := 1 - b.tokens
	if deficit <= 0 {
		return 0
	}
	return int64(deficit/b.refillRate) + 1
}

const minuteMs = float64(60 * 1000)
const hourMs = float64(60 * 60 * 1000)

// Limiter enforces two independent token buckets per provider. Mutations
// happen under a single short, non-blocking critical section (spec §5: no
// I/O inside the lock).
type Limiter struct {
	mu     sync.Mutex
	minute *bucket
	hour   *bucket
}

// New constructs a Limiter. A zero (or negative) field disables that
// bucket's enforcement entirely, so a zero Config admits every request; a
// bucket that rejects every request is built with NewZeroCapacity instead.
func New(cfg Config, now time.Time) *Limiter {
	l := &Limiter{}
	if cfg.PerMinute > 0 {
		l.minute = newBucket(cfg.PerMinute, minuteMs, now)
	}
	if cfg.PerHour > 0 {
		l.hour = newBucket(cfg.PerHour, hourMs, now)
	}
	return l
}

// NewZeroCapacity builds a Limiter whose bucket starts at zero tokens and
// never admits, modeling spec §8's "rate bucket with 0 capacity" case
// explicitly (New with cfg.PerMinute == 0 would instead disable
// enforcement, not reject everything).
func NewZeroCapacity(now time.Time) *Limiter {
	return &Limiter{minute: &bucket{capacity: 0, tokens: 0, refillRate: 0, lastRefill: now}}
}

// Result is returned by Admit.
type Result struct {
	Allowed      bool
	RetryAfterMs int64
}

// Admit refills both buckets by elapsed time, then consumes one token from
// each if both hold at least one. If either bucket is short, nothing is
// consumed and Result.RetryAfterMs carries the longer of the two wait
// times, per spec §4.6.
func (l *Limiter) Admit(now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	var retryAfter int64
	ok := true

	if l.minute != nil {
		l.minute.refill(now)
		if l.minute.tokens < 1 {
			ok = false
			if w := l.minute.msUntilOneToken(); w > retryAfter {
				retryAfter = w
			}
		}
	}
	if l.hour != nil {
		l.hour.refill(now)
		if l.hour.tokens < 1 {
			ok = false
			if w := l.hour.msUntilOneToken(); w > retryAfter {
				retryAfter = w
			}
		}
	}

	if !ok {
		return Result{Allowed: false, RetryAfterMs: retryAfter}
	}

	if l.minute != nil {
		l.minute.tokens--
	}
	if l.hour != nil {
		l.hour.tokens--
	}
	return Result{Allowed: true}
}
