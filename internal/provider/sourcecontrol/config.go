// Package sourcecontrol implements the source-control HTTP-backed
// provider (spec §4.10, component C10): one or more remote repositories,
// each walked via a tree listing then classified file-by-file, with
// per-file raw-content fetches served through the shared cache. Grounded
// on evalgo-org-eve/forge/gitea.go and forge/gitlab.go, which already
// wire code.gitea.io/sdk/gitea and gitlab.com/gitlab-org/api/client-go
// against real repository/archive operations; this package generalizes
// their per-call style into the Remote interface's tree-listing and
// raw-file-fetch operations.
package sourcecontrol

import "time"

// RepoSpec names one configured remote repository (spec §6: "repos:
// [owner/repo]").
type RepoSpec struct {
	Kind   string // "gitea" or "gitlab"
	Label  string // owner/repo; keys the repo's remote and its knownRepoCategories entry
	BaseURL string
	Owner  string
	Repo   string
	Branch string
	Token  string
}

// Config configures a Provider.
type Config struct {
	Repos         []RepoSpec
	CacheTTL      time.Duration
	ResourceTTL   time.Duration
	ResourceCache int
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

// DefaultConfig returns the spec's named defaults (priority "typically
// 20+", spec §4.10).
func DefaultConfig() Config {
	return Config{
		CacheTTL:      24 * time.Hour,
		ResourceTTL:   7 * 24 * time.Hour,
		ResourceCache: 500,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		Scheme:        "o8://",
		Priority:      20,
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
	for i := range c.Repos {
		if c.Repos[i].Branch == "" {
			c.Repos[i].Branch = "main"
		}
	}
	return c
}
