// Package provider defines the shared contract every backend (local
// filesystem, community catalog, source control) implements, plus the
// stats/health bookkeeping every implementation shares (spec §4.8,
// component C8).
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gobrucego/o8fed/internal/resource"
)

// Status is a provider's current health classification.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// HealthRecord is the output of healthCheck.
type HealthRecord struct {
	Provider     string
	Status       Status
	LastCheck    time.Time
	ResponseTime time.Duration
	Reachable    bool
	Authenticated bool
	Error        string
	Metrics      HealthMetrics
}

// HealthMetrics is HealthRecord's metrics sub-record.
type HealthMetrics struct {
	SuccessRate         float64
	AvgResponseTime     time.Duration
	ConsecutiveFailures int
	LastSuccess         time.Time
}

// RateLimitSnapshot mirrors the current token counts of a provider's
// ratelimit.Limiter for stats reporting.
type RateLimitSnapshot struct {
	PerMinuteRemaining float64
	PerHourRemaining   float64
}

// StatsRecord is the output of getStats (spec §4.8 "Stats discipline").
type StatsRecord struct {
	Provider          string
	TotalRequests     int64
	SuccessfulRequests int64
	FailedRequests    int64
	CachedRequests    int64
	ResourcesFetched  int64
	TokensFetched     int64
	AvgResponseTime   time.Duration
	CacheHitRate      float64 // derived: cached / total
	UptimeRatio       float64 // derived: successful / total
	RateLimit         RateLimitSnapshot
	StatsResetAt      time.Time
}

// SearchOptions mirrors the dynamic-URI query parameters (spec §4.2/§6)
// that drive a provider's search.
type SearchOptions struct {
	Query         string
	MaxTokens     int
	MaxResults    int
	MinScore      int
	Tags          []string
	RequiredTags  []string
	Categories    []string
	Mode          string
	SortBy        string
	SortDirection string
	Offset        int
	Limit         int
}

// SearchResult is one scored match returned from search.
type SearchResult struct {
	Resource    resource.Metadata
	Score       int
	Reasons     []string
	SourceProvider string
}

// SearchResponse is the output of search.
type SearchResponse struct {
	Results []SearchResult
	Facets  resource.Facets
	Total   int
}

// String renders a StatsRecord as an operator-facing one-liner, humanizing
// request/token counts and the stats-reset timestamp (spec §9 "humanized
// operator-facing output").
func (s StatsRecord) String() string {
	last := "never"
	if !s.StatsResetAt.IsZero() {
		last = humanize.Time(s.StatsResetAt)
	}
	return fmt.Sprintf(
		"%s: %s requests (%s ok, %s failed, %s cached), %s tokens fetched, reset %s",
		s.Provider,
		humanize.Comma(s.TotalRequests),
		humanize.Comma(s.SuccessfulRequests),
		humanize.Comma(s.FailedRequests),
		humanize.Comma(s.CachedRequests),
		humanize.Comma(s.TokensFetched),
		last,
	)
}

// Provider is the contract every backend implements (spec §4.8).
type Provider interface {
	Label() string
	Priority() int
	Enabled() bool
	SetEnabled(bool)

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	FetchIndex(ctx context.Context) (resource.Index, error)
	FetchResource(ctx context.Context, category resource.Category, id string) (resource.Resource, error)
	Search(ctx context.Context, opts SearchOptions) (SearchResponse, error)
	HealthCheck(ctx context.Context) (HealthRecord, error)
	GetStats() StatsRecord
	ResetStats()
}
