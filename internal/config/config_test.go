package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fedctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesProviderDefaults(t *testing.T) {
	path := writeConfigFile(t, `
local:
  enabled: true
  resourcesPath: /tmp/resources
community:
  enabled: true
  apiURL: https://catalog.example.test/components.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Local.Enabled)
	assert.Equal(t, "/tmp/resources", cfg.Local.Config.ResourcesPath)
	assert.Equal(t, 200, cfg.Local.Config.CacheSize) // provider default preserved

	assert.True(t, cfg.Community.Enabled)
	assert.Equal(t, "https://catalog.example.test/components.json", cfg.Community.Config.APIURL)
}

func TestLoadDefaultsRegistrySettingsWhenUnset(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Registry.MaxConsecutiveFailures)
	assert.True(t, cfg.Registry.AutoDisableUnhealthy)
}

func TestLoadReadsSourceControlRepos(t *testing.T) {
	path := writeConfigFile(t, `
sourceControl:
  enabled: true
  repos:
    - kind: gitea
      label: someone/repo
      baseURL: https://gitea.example.test
      owner: someone
      repo: repo
      branch: main
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.SourceControl.Config.Repos, 1)
	assert.Equal(t, "someone/repo", cfg.SourceControl.Config.Repos[0].Label)
}
