// Package resource defines the data model shared by every provider and by
// the federation core: the Resource artifact itself, the lightweight
// Fragment projection used for scoring, the provider-level ResourceIndex
// snapshot, and the small stats and facet value types that every provider
// reports through the same shape.
package resource

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Category is one of the five abstract artifact kinds the federation
// understands. HTTP-backed providers map their own richer type taxonomies
// down onto this set (see provider/community).
type Category string

const (
	CategoryAgent    Category = "agent"
	CategorySkill    Category = "skill"
	CategoryExample  Category = "example"
	CategoryPattern  Category = "pattern"
	CategoryWorkflow Category = "workflow"
)

// categoryPriority orders categories for "full" mode content assembly
// (spec §4.3: agent -> skill -> pattern -> example -> workflow).
var categoryPriority = map[Category]int{
	CategoryAgent:    0,
	CategorySkill:    1,
	CategoryPattern:  2,
	CategoryExample:  3,
	CategoryWorkflow: 4,
}

// CategoryPriority returns the full-mode assembly rank for c; unknown
// categories sort last.
func CategoryPriority(c Category) int {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return len(categoryPriority)
}

// Resource is the atomic artifact the federation aggregates. Identifier +
// Category form a primary key within a single provider.
type Resource struct {
	ID               string            `json:"id"`
	Category         Category          `json:"category"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Tags             []string          `json:"tags"`
	Capabilities     []string          `json:"capabilities"`
	UseWhen          []string          `json:"useWhen"`
	EstimatedTokens  int               `json:"estimatedTokens"`
	Version          string            `json:"version,omitempty"`
	Author           string            `json:"author,omitempty"`
	CreatedAt        *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
	Source           string            `json:"source"`
	SourceURI        string            `json:"sourceURI"`
	Content          string            `json:"content"`
	Dependencies     []string          `json:"dependencies,omitempty"`
	Related          []string          `json:"related,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// EstimateTokens computes ceil(len(content)/4), the spec's default token
// estimate for content missing an explicit estimatedTokens value.
func EstimateTokens(content string) int {
	if len(content) == 0 {
		return 1
	}
	return int(math.Ceil(float64(len(content)) / 4.0))
}

// Normalize fills EstimatedTokens from content when it is unset and
// lower-cases the tag set, enforcing the data-model invariants in spec §3.
func (r *Resource) Normalize() {
	if r.EstimatedTokens < 1 {
		r.EstimatedTokens = EstimateTokens(r.Content)
	}
	for i, t := range r.Tags {
		r.Tags[i] = strings.ToLower(t)
	}
}

// Fragment is the lightweight, content-bearing projection of a Resource
// used by the scoring subsystem (spec §3 "Resource Fragment").
type Fragment struct {
	ID              string   `json:"id"`
	Category        Category `json:"category"`
	Tags            []string `json:"tags"`
	Capabilities    []string `json:"capabilities"`
	UseWhen         []string `json:"useWhen"`
	EstimatedTokens int      `json:"estimatedTokens"`
	Content         string   `json:"content"`
	Title           string   `json:"title"`
	URI             string   `json:"uri"`
}

// ToFragment projects a full Resource down to its scoring Fragment. uri is
// the resource's addressable static URI, supplied by the caller because
// only the provider knows its own scheme.
func (r *Resource) ToFragment(uri string) Fragment {
	return Fragment{
		ID:              r.ID,
		Category:        r.Category,
		Tags:            r.Tags,
		Capabilities:    r.Capabilities,
		UseWhen:         r.UseWhen,
		EstimatedTokens: r.EstimatedTokens,
		Content:         r.Content,
		Title:           r.Title,
		URI:             uri,
	}
}

// Metadata is the no-content per-resource entry carried in a ResourceIndex.
type Metadata struct {
	ID              string     `json:"id"`
	Category        Category   `json:"category"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Tags            []string   `json:"tags"`
	Capabilities    []string   `json:"capabilities"`
	UseWhen         []string   `json:"useWhen"`
	EstimatedTokens int        `json:"estimatedTokens"`
	Version         string     `json:"version,omitempty"`
	Author          string     `json:"author,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
	SourceURI       string     `json:"sourceURI"`
}

// MetadataFromResource builds index Metadata out of a full Resource, dropping content.
func MetadataFromResource(r *Resource) Metadata {
	return Metadata{
		ID:              r.ID,
		Category:        r.Category,
		Title:           r.Title,
		Description:     r.Description,
		Tags:            r.Tags,
		Capabilities:    r.Capabilities,
		UseWhen:         r.UseWhen,
		EstimatedTokens: r.EstimatedTokens,
		Version:         r.Version,
		Author:          r.Author,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		SourceURI:       r.SourceURI,
	}
}

// Stats is the per-category/per-tag rollup carried alongside a ResourceIndex.
type Stats struct {
	CountByCategory map[Category]int `json:"countByCategory"`
	TotalTokens     int              `json:"totalTokens"`
	TopTags         []TagCount       `json:"topTags"`
}

// TagCount is one entry of a top-N tag frequency list.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ComputeStats derives a Stats rollup from a metadata list, keeping the
// topN most frequent tags (ties broken lexicographically for determinism).
func ComputeStats(entries []Metadata, topN int) Stats {
	counts := make(map[Category]int)
	tagCounts := make(map[string]int)
	total := 0
	for _, e := range entries {
		counts[e.Category]++
		total += e.EstimatedTokens
		for _, t := range e.Tags {
			tagCounts[strings.ToLower(t)]++
		}
	}
	tags := make([]TagCount, 0, len(tagCounts))
	for t, c := range tagCounts {
		tags = append(tags, TagCount{Tag: t, Count: c})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if topN > 0 && len(tags) > topN {
		tags = tags[:topN]
	}
	return Stats{CountByCategory: counts, TotalTokens: total, TopTags: tags}
}

// Index is a snapshot of a provider's catalog (spec §3 "Resource Index").
type Index struct {
	Provider    string     `json:"provider"`
	Total       int        `json:"total"`
	Resources   []Metadata `json:"resources"`
	Version     string     `json:"version"`
	Generated   time.Time  `json:"generated"`
	Categories  []Category `json:"categories"`
	Statistics  Stats      `json:"statistics"`
}

// BuildIndex assembles an Index from a provider's resource metadata list.
func BuildIndex(provider, version string, entries []Metadata, generated time.Time) Index {
	seen := make(map[Category]bool)
	var cats []Category
	for _, e := range entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			cats = append(cats, e.Category)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return Index{
		Provider:   provider,
		Total:      len(entries),
		Resources:  entries,
		Version:    version,
		Generated:  generated,
		Categories: cats,
		Statistics: ComputeStats(entries, 20),
	}
}

// Facets is the category/tag count breakdown computed over a search result
// set, named but not separately typed in spec §4.9.
type Facets struct {
	Categories map[Category]int `json:"categories"`
	Tags       map[string]int   `json:"tags"`
}

// ComputeFacets derives Facets from a set of fragments that made it into a
// search response.
func ComputeFacets(fragments []Fragment) Facets {
	f := Facets{Categories: make(map[Category]int), Tags: make(map[string]int)}
	for _, frag := range fragments {
		f.Categories[frag.Category]++
		for _, t := range frag.Tags {
			f.Tags[strings.ToLower(t)]++
		}
	}
	return f
}
