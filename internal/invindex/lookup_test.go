package invindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestStore(now time.Time) *Store {
	artifacts := Build(sampleFragments(), nil, now)
	return NewStore(artifacts)
}

func TestNormalizeQueryCollapsesToHyphenatedSlug(t *testing.T) {
	assert.Equal(t, "typescript-api", NormalizeQuery("  TypeScript   API!! "))
	assert.Equal(t, "", NormalizeQuery("   ---   "))
}

func TestLookupTier2ScoresAndCachesQuickLookup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := buildTestStore(now)

	text, metrics, err := store.Lookup("typescript rest api async", Options{}, nil, now)
	require.NoError(t, err)
	assert.Equal(t, TierIndex, metrics.Tier)
	assert.GreaterOrEqual(t, metrics.ResultCount, 2)
	assert.Contains(t, text, "typescript-api")

	// A second lookup for the same normalized query should now be served
	// from the tier-1 quick-lookup cache written by the first call.
	_, metrics2, err := store.Lookup("typescript rest api async", Options{}, nil, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, TierQuick, metrics2.Tier)
}

func TestLookupTier1ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := buildTestStore(now)

	_, metrics, err := store.Lookup("typescript rest api async", Options{}, nil, now)
	require.NoError(t, err)
	require.Equal(t, TierIndex, metrics.Tier)

	later := now.Add(quickLookupTTL + time.Minute)
	_, metrics2, err := store.Lookup("typescript rest api async", Options{}, nil, later)
	require.NoError(t, err)
	assert.NotEqual(t, TierQuick, metrics2.Tier)
}

func TestLookupFallsBackToFuzzyOnFewerThanTwoMatches(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := buildTestStore(now)

	called := false
	fallback := func(query string, opts Options) (string, int, error) {
		called = true
		return "fuzzy-fallback-result", 1, nil
	}

	text, metrics, err := store.Lookup("nonexistent-xyzzy", Options{}, fallback, now)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, TierFuzzyFallback, metrics.Tier)
	assert.Equal(t, "fuzzy-fallback-result", text)
}

func TestLookupCategoryFilterExcludesOtherCategories(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := buildTestStore(now)

	text, _, err := store.Lookup("model", Options{Categories: []string{"skill"}}, nil, now)
	require.NoError(t, err)
	assert.NotContains(t, text, "python-ml")
}

func TestReplaceSwapsArtifactsAtomically(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(Artifacts{})
	store.Replace(Build(sampleFragments(), nil, now))

	_, metrics, err := store.Lookup("typescript rest api async", Options{}, nil, now)
	require.NoError(t, err)
	assert.Equal(t, TierIndex, metrics.Tier)
}
