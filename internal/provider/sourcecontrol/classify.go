package sourcecontrol

import (
	"strings"

	"github.com/gobrucego/o8fed/internal/resource"
)

// knownRepoCategories is the "known-repositories map" spec §4.10 calls
// for: per-repository top-level-directory-to-category overrides for
// repositories whose layout doesn't follow the plural-noun convention the
// heuristic below assumes.
var knownRepoCategories = map[string]map[string]resource.Category{
	// example override: maps this repo's "skills/" directory to the skill
	// category explicitly.
	"anthropics/skills": {
		"skills": resource.CategorySkill,
	},
}

var pluralToCategory = map[string]resource.Category{
	"agents":    resource.CategoryAgent,
	"skills":    resource.CategorySkill,
	"examples":  resource.CategoryExample,
	"patterns":  resource.CategoryPattern,
	"workflows": resource.CategoryWorkflow,
	"guides":    resource.CategoryPattern,
}

var singularToCategory = map[string]resource.Category{
	"agent":    resource.CategoryAgent,
	"skill":    resource.CategorySkill,
	"example":  resource.CategoryExample,
	"pattern":  resource.CategoryPattern,
	"workflow": resource.CategoryWorkflow,
	"guide":    resource.CategoryPattern,
}

// classify maps a repository-relative path to a Category, or false if no
// known or heuristic rule recognizes its top-level directory (spec
// §4.10: "unknown top-level directories use a heuristic based on
// singular/plural").
func classify(repoLabel, path string) (resource.Category, bool) {
	top, rest, ok := strings.Cut(path, "/")
	if !ok {
		return "", false
	}
	_ = rest

	if overrides, ok := knownRepoCategories[repoLabel]; ok {
		if c, ok := overrides[strings.ToLower(top)]; ok {
			return c, true
		}
	}
	if c, ok := pluralToCategory[strings.ToLower(top)]; ok {
		return c, true
	}
	if c, ok := singularToCategory[strings.ToLower(top)]; ok {
		return c, true
	}
	return "", false
}
