// Package config loads the federation's external configuration: which
// providers to stand up and how the registry should supervise them (spec
// §6 "Configuration-driven"). Grounded on evalgo-org-eve/config/config.go's
// EnvConfig/LoadXConfig pattern and evalgo-org-eve/cli/root.go's viper
// wiring, generalized from env-var-only lookups into a `viper.New()`
// loader that reads a YAML/JSON/TOML file first and lets environment
// variables (prefixed O8FED_) override it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gobrucego/o8fed/internal/provider/community"
	"github.com/gobrucego/o8fed/internal/provider/local"
	"github.com/gobrucego/o8fed/internal/provider/sourcecontrol"
	"github.com/gobrucego/o8fed/internal/registry"
)

// LocalConfig configures the filesystem provider (spec §6).
type LocalConfig struct {
	Enabled bool
	Label   string
	local.Config
}

// CommunityCatalogConfig configures the community-catalog provider.
type CommunityCatalogConfig struct {
	Enabled bool
	Label   string
	community.Config
}

// SourceControlConfig configures the source-control provider.
type SourceControlConfig struct {
	Enabled bool
	Label   string
	sourcecontrol.Config
}

// RegistryConfig configures the registry's own supervision behavior
// (health-check cadence, auto-disable threshold), distinct from the
// teacher's same-named service-discovery config.
type RegistryConfig struct {
	HealthCheckInterval    time.Duration
	AutoDisableUnhealthy   bool
	MaxConsecutiveFailures int
}

// Config is the federation's full external configuration surface.
type Config struct {
	Local          LocalConfig
	Community      CommunityCatalogConfig
	SourceControl  SourceControlConfig
	Registry       RegistryConfig
}

// Load reads path (if non-empty) plus O8FED_-prefixed environment
// variables into a Config, applying the same named defaults each
// provider package's own DefaultConfig already carries.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("O8FED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		Local: LocalConfig{
			Enabled: v.GetBool("local.enabled"),
			Label:   stringOr(v.GetString("local.label"), "local"),
		},
		Community: CommunityCatalogConfig{
			Enabled: v.GetBool("community.enabled"),
			Label:   stringOr(v.GetString("community.label"), "community"),
		},
		SourceControl: SourceControlConfig{
			Enabled: v.GetBool("sourceControl.enabled"),
			Label:   stringOr(v.GetString("sourceControl.label"), "sourcecontrol"),
		},
		Registry: RegistryConfig{
			HealthCheckInterval:    durationOr(v.GetDuration("registry.healthCheckInterval"), time.Minute),
			AutoDisableUnhealthy:   boolDefaultTrue(v, "registry.autoDisableUnhealthy"),
			MaxConsecutiveFailures: intOr(v.GetInt("registry.maxConsecutiveFailures"), 5),
		},
	}

	cfg.Community.Config = community.DefaultConfig()
	if apiURL := v.GetString("community.apiURL"); apiURL != "" {
		cfg.Community.Config.APIURL = apiURL
	}

	cfg.SourceControl.Config = sourcecontrol.DefaultConfig()
	var repos []sourcecontrol.RepoSpec
	if err := v.UnmarshalKey("sourceControl.repos", &repos); err == nil && len(repos) > 0 {
		cfg.SourceControl.Config.Repos = repos
	}

	cfg.Local.Config = local.DefaultConfig()
	if root := v.GetString("local.resourcesPath"); root != "" {
		cfg.Local.Config.ResourcesPath = root
	}

	return cfg, nil
}

// ToRegistryConfig projects the loaded registry section into the shape
// internal/registry.New expects.
func (c Config) ToRegistryConfig() registry.Config {
	return registry.Config{
		EnableHealthChecks:     true,
		HealthCheckInterval:    c.Registry.HealthCheckInterval,
		AutoDisableUnhealthy:   c.Registry.AutoDisableUnhealthy,
		MaxConsecutiveFailures: c.Registry.MaxConsecutiveFailures,
	}
}

// boolDefaultTrue returns the configured value, or true if the key was
// never set (auto-disable defaults on, unlike every other bool flag).
func boolDefaultTrue(v *viper.Viper, key string) bool {
	if !v.IsSet(key) {
		return true
	}
	return v.GetBool(key)
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func durationOr(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
