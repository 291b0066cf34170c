// Package httpmeta holds the component metadata shape and scoring
// algorithm shared by both HTTP-backed providers (spec §4.10, component
// C10): the community-catalog provider and the source-control provider
// both reduce their backend's native shape down to a Component, then
// score it with the same weighted-substring formula.
package httpmeta

import (
	"strings"

	"github.com/gobrucego/o8fed/internal/keyword"
	"github.com/gobrucego/o8fed/internal/resource"
)

// Validation is the optional backend-reported security/quality record
// scored into search results (spec §4.10 "Security" bullet).
type Validation struct {
	Valid bool
	Score int // 0-20
}

// Component is the common projection both HTTP providers normalize their
// backend's native shape into before scoring, caching, and indexing.
type Component struct {
	ID              string
	Category        resource.Category
	Title           string
	Description     string
	Tags            []string
	Capabilities    []string
	UseWhen         []string
	EstimatedTokens int
	Version         string
	Author          string
	SourceURI       string
	Content         string
	Downloads       int
	Validation      *Validation
}

// ToMetadata projects a Component down to the no-content index entry.
func (c Component) ToMetadata() resource.Metadata {
	return resource.Metadata{
		ID:              c.ID,
		Category:        c.Category,
		Title:           c.Title,
		Description:     c.Description,
		Tags:            c.Tags,
		Capabilities:    c.Capabilities,
		UseWhen:         c.UseWhen,
		EstimatedTokens: c.EstimatedTokens,
		Version:         c.Version,
		Author:          c.Author,
		SourceURI:       c.SourceURI,
	}
}

// ToResource projects a Component into a full Resource (content included),
// tagging it with the owning provider's label as Source.
func (c Component) ToResource(providerLabel string) resource.Resource {
	r := resource.Resource{
		ID:              c.ID,
		Category:        c.Category,
		Title:           c.Title,
		Description:     c.Description,
		Tags:            c.Tags,
		Capabilities:    c.Capabilities,
		UseWhen:         c.UseWhen,
		EstimatedTokens: c.EstimatedTokens,
		Version:         c.Version,
		Author:          c.Author,
		Source:          providerLabel,
		SourceURI:       c.SourceURI,
		Content:         c.Content,
	}
	r.Normalize()
	return r
}

// SearchRequest mirrors provider.SearchOptions; httpmeta does not import
// the provider package, and provider/community and provider/sourcecontrol
// copy their options into this type.
type SearchRequest struct {
	Query         string
	Category      string
	Categories    []string
	RequiredTags  []string
	OptionalTags  []string
	MinScore      int
}

// Score implements the community/source-control scoring formula from spec
// §4.10: weighted substring matches on name/description/tags/capabilities/
// use-when, a category-filter short-circuit, a required-tags
// short-circuit, optional-tag bonuses, popularity, a validation-record
// bonus, and the shared size preference, capped at 100.
func Score(c Component, req SearchRequest) int {
	if len(req.Categories) > 0 && !categoryIn(c.Category, req.Categories) {
		return 0
	}
	if req.Category != "" && resource.Category(req.Category) != c.Category {
		return 0
	}
	if !hasAllTags(c.Tags, req.RequiredTags) {
		return 0
	}

	keywords := keyword.Extract(req.Query)
	total := 0

	name := strings.ToLower(c.Title)
	desc := strings.ToLower(c.Description)
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			total += 15
		}
		if strings.Contains(desc, kw) {
			total += 8
		}
		total += 10 * countSubstringMatches(c.Tags, kw)
		total += 8 * countSubstringMatches(c.Capabilities, kw)
		total += 5 * countSubstringMatches(c.UseWhen, kw)
	}

	if len(req.Categories) > 0 && categoryIn(c.Category, req.Categories) {
		total += 15
	} else if req.Category != "" && resource.Category(req.Category) == c.Category {
		total += 15
	}
	if len(req.RequiredTags) > 0 {
		total += 10
	}
	total += 5 * countTagMatches(c.Tags, req.OptionalTags)

	if c.Downloads > 1000 {
		total += 10
	} else if c.Downloads > 100 {
		total += 5
	}

	if c.Validation != nil && c.Validation.Valid {
		bonus := c.Validation.Score / 4 // score is 0-20; spec's "score/20 * 5" reduces to score/4
		if bonus > 5 {
			bonus = 5
		}
		total += bonus
	}

	if c.EstimatedTokens < 1000 {
		total += 5
	} else if c.EstimatedTokens > 5000 {
		total -= 5
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

func categoryIn(c resource.Category, categories []string) bool {
	for _, want := range categories {
		if resource.Category(want) == c {
			return true
		}
	}
	return false
}

func hasAllTags(tags, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(tags))
	for _, t := range tags {
		have[strings.ToLower(t)] = true
	}
	for _, r := range required {
		if !have[strings.ToLower(r)] {
			return false
		}
	}
	return true
}

func countTagMatches(tags, wanted []string) int {
	have := make(map[string]bool, len(tags))
	for _, t := range tags {
		have[strings.ToLower(t)] = true
	}
	n := 0
	for _, w := range wanted {
		if have[strings.ToLower(w)] {
			n++
		}
	}
	return n
}

func countSubstringMatches(values []string, kw string) int {
	n := 0
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), kw) {
			n++
		}
	}
	return n
}

// Reasons names up to 3 attributes that contributed to c's score against
// query, in a fixed attribute-priority order (spec §4.10 "Attach match
// reasons").
func Reasons(c Component, query string) []string {
	keywords := keyword.Extract(query)
	var reasons []string

	if matchesAny(strings.ToLower(c.Title), keywords) {
		reasons = append(reasons, "name matches query")
	}
	if matched := matchingValues(c.Tags, keywords); len(matched) > 0 {
		reasons = append(reasons, "matched tags: "+strings.Join(matched, ", "))
	}
	if matched := matchingValues(c.Capabilities, keywords); len(matched) > 0 {
		reasons = append(reasons, "matched capabilities: "+strings.Join(matched, ", "))
	}
	if len(reasons) < 3 && matchesAny(strings.ToLower(c.Description), keywords) {
		reasons = append(reasons, "description matches query")
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

func matchesAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func matchingValues(values, keywords []string) []string {
	var out []string
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, v)
				break
			}
		}
		if len(out) >= 2 {
			break
		}
	}
	return out
}
