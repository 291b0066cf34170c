package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobrucego/o8fed/internal/resource"
)

func sampleFragments() []resource.Fragment {
	return []resource.Fragment{
		{
			ID:              "typescript-api",
			Category:        resource.CategorySkill,
			Tags:            []string{"typescript", "async", "api"},
			Capabilities:    []string{"build REST APIs", "handle async flows"},
			UseWhen:         []string{"building a typescript api"},
			EstimatedTokens: 800,
			Title:           "TypeScript API skill",
			URI:             "o8://skill/typescript-api",
			Content:         "# TypeScript API\ncontent body",
		},
		{
			ID:              "python-ml",
			Category:        resource.CategoryExample,
			Tags:            []string{"python", "machine-learning"},
			Capabilities:    []string{"train models"},
			UseWhen:         []string{"training a model"},
			EstimatedTokens: 6000,
			Title:           "Python ML example",
			URI:             "o8://example/python-ml",
			Content:         "python content",
		},
	}
}

func TestMatchRanksRelevantFragmentFirst(t *testing.T) {
	req := Request{
		Query:      "build typescript api",
		MaxTokens:  3000,
		MaxResults: 5,
		MinScore:   10,
		Mode:       ModeCatalog,
	}
	result := Match(sampleFragments(), req)
	require.NotEmpty(t, result.Fragments)
	assert.Equal(t, "typescript-api", result.Fragments[0].ID)
	assert.GreaterOrEqual(t, result.MatchScores["typescript-api"], req.MinScore)
}

func TestMatchFiltersBelowMinScore(t *testing.T) {
	req := Request{Query: "zzzznomatch", MaxTokens: 3000, MaxResults: 5, MinScore: 50, Mode: ModeCatalog}
	result := Match(sampleFragments(), req)
	assert.Empty(t, result.Fragments)
}

func TestMatchRequiredTagsExcludesMissing(t *testing.T) {
	req := Request{
		Query:        "build api",
		MaxTokens:    3000,
		MaxResults:   5,
		MinScore:     0,
		RequiredTags: []string{"python"},
		Mode:         ModeCatalog,
	}
	result := Match(sampleFragments(), req)
	for _, f := range result.Fragments {
		assert.Equal(t, "python-ml", f.ID)
	}
}

func TestMatchSizePreference(t *testing.T) {
	keywords := []string{"nomatchatall"}
	small := resource.Fragment{ID: "small", EstimatedTokens: 500}
	large := resource.Fragment{ID: "large", EstimatedTokens: 6000}
	assert.Equal(t, 5, Score(small, keywords, Request{}))
	assert.Equal(t, 0, Score(large, keywords, Request{})) // -5 clamped to 0
}

func TestMatchEmptyQueryReturnsEmptyNotError(t *testing.T) {
	req := Request{Query: "", MaxTokens: 3000, MaxResults: 5, MinScore: 0, Mode: ModeCatalog}
	result := Match(sampleFragments(), req)
	assert.NotNil(t, result)
}

func TestMatchMaxTokensZeroReturnsNoFragmentsInFullMode(t *testing.T) {
	req := Request{Query: "typescript", MaxTokens: 0, MaxResults: 5, MinScore: 0, Mode: ModeFull}
	result := Match(sampleFragments(), req)
	assert.Empty(t, result.Fragments)
	assert.Equal(t, 0, result.TotalTokens)
}

func TestMatchMaxResultsZeroReturnsEmpty(t *testing.T) {
	req := Request{Query: "typescript", MaxTokens: 3000, MaxResults: 0, MinScore: 0, Mode: ModeCatalog}
	result := Match(sampleFragments(), req)
	assert.Empty(t, result.Fragments)
}

func TestPackForcesTopThreeWithin150Percent(t *testing.T) {
	sorted := []scoredFragment{
		{frag: resource.Fragment{ID: "a", EstimatedTokens: 400}, score: 90},
		{frag: resource.Fragment{ID: "b", EstimatedTokens: 400}, score: 80},
		{frag: resource.Fragment{ID: "c", EstimatedTokens: 400}, score: 70},
		{frag: resource.Fragment{ID: "d", EstimatedTokens: 400}, score: 60},
	}
	selected, total := pack(sorted, 1000)
	require.Len(t, selected, 3)
	assert.Equal(t, 1200, total) // exceeds maxTokens but within 150% (1500)
}

func TestPackNeverForcesOversizedFragment(t *testing.T) {
	sorted := []scoredFragment{
		{frag: resource.Fragment{ID: "huge", EstimatedTokens: 5000}, score: 90},
	}
	selected, total := pack(sorted, 1000)
	assert.Empty(t, selected)
	assert.Equal(t, 0, total)
}

func TestScoreExactTagCapUseWhenAndPhraseBonus(t *testing.T) {
	frag := resource.Fragment{
		ID:              "x",
		Category:        resource.CategorySkill,
		Tags:            []string{"typescript"},
		Capabilities:    []string{"build rest api"},
		UseWhen:         []string{"build typescript api"},
		EstimatedTokens: 500,
	}
	keywords := []string{"typescript", "api"}
	req := Request{Query: "build typescript api"}
	score := Score(frag, keywords, req)
	// tag(15) + cap(12, "api" substring) + usewhen(8, "typescript" substring matched already by tag... )
	assert.Greater(t, score, 30)
	assert.LessOrEqual(t, score, 100)
}

func TestReasonsNamesMatchedTags(t *testing.T) {
	frag := sampleFragments()[0]
	reasons := Reasons(frag, []string{"typescript", "api"}, Request{Category: "skill"})
	require.NotEmpty(t, reasons)
	assert.LessOrEqual(t, len(reasons), 3)
}
