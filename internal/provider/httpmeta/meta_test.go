package httpmeta

import (
	"testing"

	"github.com/gobrucego/o8fed/internal/resource"
	"github.com/stretchr/testify/assert"
)

func TestScoreZeroWhenCategoryFilterExcludes(t *testing.T) {
	c := Component{ID: "x", Category: resource.CategoryAgent, Title: "python agent"}
	req := SearchRequest{Query: "python", Categories: []string{"skill"}}
	assert.Equal(t, 0, Score(c, req))
}

func TestScoreZeroWhenRequiredTagMissing(t *testing.T) {
	c := Component{ID: "x", Category: resource.CategoryAgent, Title: "python agent", Tags: []string{"ml"}}
	req := SearchRequest{Query: "python", RequiredTags: []string{"typescript"}}
	assert.Equal(t, 0, Score(c, req))
}

func TestScoreRewardsTitleAndTagMatches(t *testing.T) {
	c := Component{
		ID: "x", Category: resource.CategoryAgent,
		Title: "Python ML Agent", Tags: []string{"python", "ml"},
	}
	req := SearchRequest{Query: "python ml"}
	score := Score(c, req)
	assert.Greater(t, score, 0)
}

func TestScoreCapsAtOneHundred(t *testing.T) {
	c := Component{
		ID: "x", Category: resource.CategoryAgent,
		Title: "python python python agent", Description: "python python",
		Tags: []string{"python", "ml", "api"}, Capabilities: []string{"python training"},
		UseWhen: []string{"python use"}, Downloads: 5000,
		Validation: &Validation{Valid: true, Score: 20}, EstimatedTokens: 500,
	}
	req := SearchRequest{Query: "python ml api training use", Categories: []string{"agent"}, OptionalTags: []string{"python", "ml", "api"}}
	assert.Equal(t, 100, Score(c, req))
}

func TestScoreNeverNegative(t *testing.T) {
	c := Component{ID: "x", Category: resource.CategoryAgent, Title: "unrelated", EstimatedTokens: 6000}
	req := SearchRequest{Query: "zzz nonmatching"}
	assert.GreaterOrEqual(t, Score(c, req), 0)
}

func TestValidationBonusCappedAtFive(t *testing.T) {
	base := Component{ID: "x", Category: resource.CategoryAgent, Title: "agent"}
	withValidation := base
	v := Validation{Valid: true, Score: 20}
	withValidation.Validation = &v

	req := SearchRequest{Query: "agent"}
	diff := Score(withValidation, req) - Score(base, req)
	assert.Equal(t, 5, diff)
}

func TestReasonsReturnsAtMostThree(t *testing.T) {
	c := Component{
		ID: "x", Title: "python agent", Description: "python description",
		Tags: []string{"python"}, Capabilities: []string{"python capability"},
	}
	reasons := Reasons(c, "python")
	assert.LessOrEqual(t, len(reasons), 3)
	assert.NotEmpty(t, reasons)
}

func TestReasonsEmptyWhenNoMatch(t *testing.T) {
	c := Component{ID: "x", Title: "agent", Description: "something else"}
	reasons := Reasons(c, "zzz")
	assert.Empty(t, reasons)
}
