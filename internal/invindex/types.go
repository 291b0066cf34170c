// Package invindex implements the offline index builder (spec §4.5,
// component C5) and the three-tier lookup engine (spec §4.4, component
// C4) that runs against the artifacts it produces: a scenario map, a
// keyword map, and a quick-lookup cache, serialized as JSON files under a
// provider's .index/ directory (spec §6).
package invindex

import (
	"time"

	"github.com/gobrucego/o8fed/internal/resource"
)

// ScenarioEntry is one use-when entry of one fragment, treated as an
// independently indexable "scenario" (spec glossary).
type ScenarioEntry struct {
	ScenarioText     string             `json:"scenarioText"`
	Keywords         []string           `json:"keywords"`
	URI              string             `json:"uri"`
	Category         resource.Category  `json:"category"`
	EstimatedTokens  int                `json:"estimatedTokens"`
	DefaultRelevance int                `json:"defaultRelevance"`
}

// ScenarioIndex is the usewhen-index.json artifact.
type ScenarioIndex struct {
	Version         string                   `json:"version"`
	Generated       time.Time                `json:"generated"`
	TotalFragments  int                      `json:"totalFragments"`
	Index           map[string]ScenarioEntry `json:"index"`
	Stats           IndexStats               `json:"stats"`
}

// KeywordIndex is the keyword-index.json artifact: keyword -> scenario hashes.
type KeywordIndex struct {
	Version  string              `json:"version"`
	Keywords map[string][]string `json:"keywords"`
	Stats    IndexStats          `json:"stats"`
}

// QuickLookupEntry is a cached answer for a previously-seen normalized query.
type QuickLookupEntry struct {
	URIs      []string  `json:"uris"`
	Tokens    int       `json:"tokens"`
	CachedAt  time.Time `json:"cachedAt"`
}

// QuickLookupIndex is the quick-lookup.json artifact.
type QuickLookupIndex struct {
	Version       string                      `json:"version"`
	CommonQueries map[string]QuickLookupEntry `json:"commonQueries"`
}

// IndexStats is a small summary embedded in the scenario/keyword artifacts.
type IndexStats struct {
	TotalScenarios int `json:"totalScenarios"`
	TotalKeywords  int `json:"totalKeywords"`
}

// Artifacts bundles the three in-memory index structures the builder
// produces and the lookup engine queries.
type Artifacts struct {
	Scenarios   ScenarioIndex
	Keywords    KeywordIndex
	QuickLookup QuickLookupIndex
}
