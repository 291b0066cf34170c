package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tsSkill = `---
id: typescript-api
category: skill
title: TypeScript API skill
description: builds REST APIs
tags:
  - typescript
  - async
capabilities:
  - build REST APIs
useWhen:
  - building a typescript api
estimatedTokens: 800
version: "1.0"
author: o8fed
createdAt: 2026-01-01
---
# TypeScript API

Body content here.
`

const pyAgent = `---
id: python-ml-agent
category: agent
title: Python ML agent
tags:
  - python
  - ml
capabilities:
  - train models
useWhen:
  - training a machine learning model
estimatedTokens: 1200
---
# Python ML Agent

Trains models.
`

const noPreambleExample = `# Plain example

Just body content, no front matter.
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skills"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "agents"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "examples"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skills", "typescript-api.md"), []byte(tsSkill), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "agents", "python-ml-agent.md"), []byte(pyAgent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "examples", "plain.md"), []byte(noPreambleExample), 0o644))
	return root
}

func newTestProvider(t *testing.T) *Provider {
	root := writeFixtures(t)
	cfg := DefaultConfig()
	cfg.ResourcesPath = root
	return New("local", cfg)
}

func TestInitializeFailsOnUnreadableRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResourcesPath = filepath.Join(t.TempDir(), "does-not-exist")
	p := New("local", cfg)

	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindUnavailable))
}

func TestInitializeSucceedsOnValidRoot(t *testing.T) {
	p := newTestProvider(t)
	err := p.Initialize(context.Background())
	assert.NoError(t, err)
}

func TestFetchIndexReturnsAllScannedResources(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Total)
	assert.Equal(t, "local", idx.Provider)
}

func TestFetchIndexIsCachedAcrossCalls(t *testing.T) {
	p := newTestProvider(t)
	first, err := p.FetchIndex(context.Background())
	require.NoError(t, err)
	second, err := p.FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Generated, second.Generated)
}

func TestFetchResourceReadsByCanonicalPath(t *testing.T) {
	p := newTestProvider(t)
	r, err := p.FetchResource(context.Background(), "skill", "typescript-api")
	require.NoError(t, err)
	assert.Equal(t, "typescript-api", r.ID)
	assert.Contains(t, r.Tags, "typescript")
	assert.Equal(t, "o8://skill/typescript-api", r.SourceURI)
}

func TestFetchResourceNotFound(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.FetchResource(context.Background(), "skill", "missing")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindNotFound))
}

func TestFetchResourceWithoutPreambleUsesFileStemAsID(t *testing.T) {
	p := newTestProvider(t)
	r, err := p.FetchResource(context.Background(), "example", "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", r.ID)
}

func TestSearchMatchesByTagAndCapability(t *testing.T) {
	p := newTestProvider(t)
	resp, err := p.Search(context.Background(), provider.SearchOptions{
		Query:      "typescript api",
		MaxTokens:  5000,
		MaxResults: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "typescript-api", resp.Results[0].Resource.ID)
	assert.Equal(t, "local", resp.Results[0].SourceProvider)
}

func TestSearchCategoryFilterNarrowsResults(t *testing.T) {
	p := newTestProvider(t)
	resp, err := p.Search(context.Background(), provider.SearchOptions{
		Query:      "ml",
		Categories: []string{"agent"},
		MaxTokens:  5000,
		MaxResults: 10,
	})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, "agent", string(r.Resource.Category))
	}
}

func TestSearchSortByTokensAscending(t *testing.T) {
	p := newTestProvider(t)
	resp, err := p.Search(context.Background(), provider.SearchOptions{
		Query:         "",
		MaxTokens:     5000,
		MaxResults:    10,
		SortBy:        "tokens",
		SortDirection: "asc",
	})
	require.NoError(t, err)
	for i := 1; i < len(resp.Results); i++ {
		assert.LessOrEqual(t, resp.Results[i-1].Resource.EstimatedTokens, resp.Results[i].Resource.EstimatedTokens)
	}
}

func TestSearchPaginatesWithOffsetAndLimit(t *testing.T) {
	p := newTestProvider(t)
	resp, err := p.Search(context.Background(), provider.SearchOptions{
		Query:      "",
		MaxTokens:  5000,
		MaxResults: 10,
		Offset:     1,
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 3, resp.Total)
}

func TestHealthCheckHealthyOnFreshProvider(t *testing.T) {
	p := newTestProvider(t)
	rec, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Reachable)
	assert.Equal(t, provider.StatusHealthy, rec.Status)
}

func TestHealthCheckUnhealthyWhenRootMissing(t *testing.T) {
	root := writeFixtures(t)
	cfg := DefaultConfig()
	cfg.ResourcesPath = root
	p := New("local", cfg)
	require.NoError(t, os.RemoveAll(root))

	rec, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, rec.Reachable)
	assert.Equal(t, provider.StatusUnhealthy, rec.Status)
}

func TestGetStatsReflectsFetchActivity(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.FetchResource(context.Background(), "skill", "typescript-api")
	require.NoError(t, err)

	stats := p.GetStats()
	assert.Equal(t, int64(1), stats.ResourcesFetched)
	assert.Greater(t, stats.TokensFetched, int64(0))
}

func TestResetStatsZeroesCounters(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.FetchResource(context.Background(), "skill", "typescript-api")
	require.NoError(t, err)

	p.ResetStats()
	stats := p.GetStats()
	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Equal(t, int64(0), stats.ResourcesFetched)
}

func TestShutdownClearsCachesAndIsIdempotent(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.FetchResource(context.Background(), "skill", "typescript-api")
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, 0, p.resourceCache.Len())
}

func TestEnabledDefaultsTrueAndSetEnabledToggles(t *testing.T) {
	p := newTestProvider(t)
	assert.True(t, p.Enabled())
	p.SetEnabled(false)
	assert.False(t, p.Enabled())
}

func TestStaticURIFormatsSchemeCategoryID(t *testing.T) {
	p := newTestProvider(t)
	assert.Equal(t, "o8://skill/typescript-api", p.staticURI("skill", "typescript-api"))
}
