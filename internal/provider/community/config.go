// Package community implements the community-catalog HTTP-backed provider
// (spec §4.10, component C10): a single monolithic JSON endpoint listing
// components, plus per-resource lookups served from that same in-memory
// catalog. Grounded on evalgo-org-eve/network/http_client.go's client
// construction style (now centralized in internal/httpclient) and
// forge/gitlab.go's JSON-decoding-of-a-third-party-API shape.
package community

import "time"

// Config configures a Provider. Zero-valued fields fall back to the
// defaults named in spec §4.10/§6.
type Config struct {
	APIURL        string
	CacheTTL      time.Duration
	ResourceTTL   time.Duration
	ResourceCache int
	Categories    []string
	RateLimit     RateLimitConfig
	Timeout       time.Duration
	RetryAttempts int
	Scheme        string
	Priority      int
}

// RateLimitConfig mirrors the external config loader's rateLimit block.
type RateLimitConfig struct {
	PerMinute int
	PerHour   int
}

// DefaultConfig returns the spec's named defaults, with APIURL left for
// the caller to fill in.
func DefaultConfig() Config {
	return Config{
		CacheTTL:      24 * time.Hour,
		ResourceTTL:   7 * 24 * time.Hour,
		ResourceCache: 500,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		Scheme:        "o8://",
		Priority:      10, // spec §4.10: "community-catalog = 10"
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.ResourceTTL == 0 {
		c.ResourceTTL = d.ResourceTTL
	}
	if c.ResourceCache == 0 {
		c.ResourceCache = d.ResourceCache
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	if c.Priority == 0 {
		c.Priority = d.Priority
	}
	return c
}
