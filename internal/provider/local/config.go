// Package local implements the filesystem-backed provider (spec §4.9,
// component C9): a directory tree of category subdirectories, each
// holding markdown resources with a metadata preamble.
package local

import "time"

// Config configures a Provider. Zero-valued fields fall back to the
// defaults named in spec §4.9.
type Config struct {
	ResourcesPath string
	CacheSize     int
	CacheTTL      time.Duration
	IndexCacheTTL time.Duration
	EnableCache   bool
	Scheme        string
	Priority      int
}

// DefaultConfig returns the spec's named defaults, with ResourcesPath and
// Scheme left for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		CacheSize:     200,
		CacheTTL:      4 * time.Hour,
		IndexCacheTTL: 24 * time.Hour,
		EnableCache:   true,
		Scheme:        "o8://",
		Priority:      0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheSize == 0 {
		c.CacheSize = d.CacheSize
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.IndexCacheTTL == 0 {
		c.IndexCacheTTL = d.IndexCacheTTL
	}
	if c.Scheme == "" {
		c.Scheme = d.Scheme
	}
	return c
}
