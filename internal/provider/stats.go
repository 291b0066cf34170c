package provider

import (
	"sync"
	"sync/atomic"
	"time"
)

const responseTimeBufferSize = 100

// StatsTracker accumulates the counters every provider reports through
// GetStats, updated from many concurrent operations (spec §5: "use atomic
// counters or a per-provider lock"). Grounded on
// other_examples/straticus1-dnsscienced__internal-rrl-limiter.go's
// atomic-counter-plus-small-critical-section style, adapted from
// allowed/dropped/slipped counters to this module's request taxonomy.
type StatsTracker struct {
	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
	cached     atomic.Int64
	resources  atomic.Int64
	tokens     atomic.Int64

	consecutiveFailures atomic.Int64
	lastSuccess         atomic.Int64 // unix nanos

	mu            sync.Mutex
	responseTimes [responseTimeBufferSize]time.Duration
	responseCount int
	responseNext  int

	resetAt atomic.Int64 // unix nanos
}

// NewStatsTracker constructs a tracker with its reset timestamp set to now.
func NewStatsTracker(now time.Time) *StatsTracker {
	t := &StatsTracker{}
	t.resetAt.Store(now.UnixNano())
	return t
}

// RecordSuccess registers a successful operation's response time and zeroes
// the consecutive-failure counter.
func (t *StatsTracker) RecordSuccess(d time.Duration, now time.Time) {
	t.total.Add(1)
	t.successful.Add(1)
	t.consecutiveFailures.Store(0)
	t.lastSuccess.Store(now.UnixNano())
	t.pushResponseTime(d)
}

// RecordFailure registers a failed operation and increments the
// consecutive-failure counter.
func (t *StatsTracker) RecordFailure(d time.Duration) {
	t.total.Add(1)
	t.failed.Add(1)
	t.consecutiveFailures.Add(1)
	t.pushResponseTime(d)
}

// RecordCached registers a request served entirely from cache.
func (t *StatsTracker) RecordCached() {
	t.total.Add(1)
	t.cached.Add(1)
}

// AddResourcesFetched adds n to the resources-fetched counter.
func (t *StatsTracker) AddResourcesFetched(n int64) { t.resources.Add(n) }

// AddTokensFetched adds n to the tokens-fetched counter.
func (t *StatsTracker) AddTokensFetched(n int64) { t.tokens.Add(n) }

func (t *StatsTracker) pushResponseTime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responseTimes[t.responseNext] = d
	t.responseNext = (t.responseNext + 1) % responseTimeBufferSize
	if t.responseCount < responseTimeBufferSize {
		t.responseCount++
	}
}

func (t *StatsTracker) avgResponseTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.responseCount == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < t.responseCount; i++ {
		sum += t.responseTimes[i]
	}
	return sum / time.Duration(t.responseCount)
}

// ConsecutiveFailures returns the current run length of failures.
func (t *StatsTracker) ConsecutiveFailures() int {
	return int(t.consecutiveFailures.Load())
}

// LastSuccess returns the timestamp of the most recent success, or the
// zero time if there has never been one.
func (t *StatsTracker) LastSuccess() time.Time {
	ns := t.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SuccessRate returns successful / total, or 1.0 when there have been no
// requests yet (an idle provider is not unhealthy).
func (t *StatsTracker) SuccessRate() float64 {
	total := t.total.Load()
	if total == 0 {
		return 1.0
	}
	return float64(t.successful.Load()) / float64(total)
}

// Snapshot produces a StatsRecord for the given provider label.
func (t *StatsTracker) Snapshot(provider string, rl RateLimitSnapshot) StatsRecord {
	total := t.total.Load()
	successful := t.successful.Load()
	cached := t.cached.Load()

	var cacheHitRate, uptimeRatio float64
	if total > 0 {
		cacheHitRate = float64(cached) / float64(total)
		uptimeRatio = float64(successful) / float64(total)
	}

	return StatsRecord{
		Provider:           provider,
		TotalRequests:      total,
		SuccessfulRequests: successful,
		FailedRequests:     t.failed.Load(),
		CachedRequests:     cached,
		ResourcesFetched:   t.resources.Load(),
		TokensFetched:      t.tokens.Load(),
		AvgResponseTime:    t.avgResponseTime(),
		CacheHitRate:       cacheHitRate,
		UptimeRatio:        uptimeRatio,
		RateLimit:          rl,
		StatsResetAt:       time.Unix(0, t.resetAt.Load()),
	}
}

// Reset zeroes every counter and records now as the new reset timestamp.
func (t *StatsTracker) Reset(now time.Time) {
	t.total.Store(0)
	t.successful.Store(0)
	t.failed.Store(0)
	t.cached.Store(0)
	t.resources.Store(0)
	t.tokens.Store(0)
	t.consecutiveFailures.Store(0)
	t.lastSuccess.Store(0)

	t.mu.Lock()
	t.responseCount = 0
	t.responseNext = 0
	t.mu.Unlock()

	t.resetAt.Store(now.UnixNano())
}
