// Package fuzzy implements the relevance scorer, Levenshtein fallback, and
// greedy token-budget packer described in spec §4.3 (component C3): given a
// free-text query and a set of resource fragments, it scores, filters,
// sorts, and assembles a response shaped by the requested output mode.
package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gobrucego/o8fed/internal/keyword"
	"github.com/gobrucego/o8fed/internal/resource"
)

const similarityThreshold = 0.75

// Mode mirrors uri.Mode without importing it, to keep this package
// dependency-free of the URI grammar.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeCatalog Mode = "catalog"
	ModeIndex   Mode = "index"
	ModeMinimal Mode = "minimal"
)

// Request is the input to Match.
type Request struct {
	Query        string
	Category     string
	Categories   []string
	MaxTokens    int
	RequiredTags []string
	Mode         Mode
	MaxResults   int
	MinScore     int
}

// CatalogEntry is the no-content projection used by the catalog/index modes.
type CatalogEntry struct {
	Title           string             `json:"title"`
	Tags            []string           `json:"tags"`
	Capabilities    []string           `json:"capabilities"`
	EstimatedTokens int                `json:"estimatedTokens"`
	URI             string             `json:"uri"`
	Category        resource.Category  `json:"category"`
}

// MinimalEntry is the compact per-fragment record used by minimal mode.
type MinimalEntry struct {
	URI    string   `json:"uri"`
	Score  int      `json:"score"`
	Tokens int      `json:"tokens"`
	Tags   []string `json:"topTags"`
}

// Result is the outcome of a Match call.
type Result struct {
	Fragments        []resource.Fragment
	TotalTokens      int
	MatchScores      map[string]int
	AssembledContent string
	CatalogEntries   []CatalogEntry
	MinimalEntries   []MinimalEntry
}

type scoredFragment struct {
	frag  resource.Fragment
	score int
}

// Match runs the full C3 pipeline over fragments.
func Match(fragments []resource.Fragment, req Request) Result {
	keywords := keyword.Extract(req.Query)

	scored := make([]scoredFragment, 0, len(fragments))
	allScores := make(map[string]int, len(fragments))
	for _, frag := range fragments {
		if !hasRequiredTags(frag, req.RequiredTags) {
			allScores[frag.ID] = 0
			continue
		}
		s := Score(frag, keywords, req)
		allScores[frag.ID] = s
		if s < req.MinScore {
			continue
		}
		scored = append(scored, scoredFragment{frag: frag, score: s})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].frag.EstimatedTokens != scored[j].frag.EstimatedTokens {
			return scored[i].frag.EstimatedTokens < scored[j].frag.EstimatedTokens
		}
		return scored[i].frag.ID < scored[j].frag.ID
	})

	maxResults := req.MaxResults
	if maxResults == 0 {
		return Result{MatchScores: allScores, Fragments: nil}
	}
	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	selected, totalTokens := pack(scored, req.MaxTokens)

	fragments2 := make([]resource.Fragment, 0, len(selected))
	for _, s := range selected {
		fragments2 = append(fragments2, s.frag)
	}

	result := Result{
		Fragments:   fragments2,
		TotalTokens: totalTokens,
		MatchScores: allScores,
	}
	format(&result, req, keywords)
	return result
}

func hasRequiredTags(frag resource.Fragment, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(frag.Tags))
	for _, t := range frag.Tags {
		have[strings.ToLower(t)] = true
	}
	for _, r := range required {
		if !have[strings.ToLower(r)] {
			return false
		}
	}
	return true
}

// Score computes the relevance score for frag against the extracted
// keywords and request filters, per the algorithm in spec §4.3.
func Score(frag resource.Fragment, keywords []string, req Request) int {
	total := 0
	matchedExactly := make(map[string]bool, len(keywords))

	tagSet := make(map[string]bool, len(frag.Tags))
	for _, t := range frag.Tags {
		tagSet[strings.ToLower(t)] = true
	}

	for _, kw := range keywords {
		if tagSet[kw] {
			total += 15
			matchedExactly[kw] = true
		}
	}
	for _, kw := range keywords {
		if matchedExactly[kw] {
			continue
		}
		if containsCaseInsensitive(frag.Capabilities, kw) {
			total += 12
			matchedExactly[kw] = true
		}
	}
	for _, kw := range keywords {
		if matchedExactly[kw] {
			continue
		}
		if containsCaseInsensitive(frag.UseWhen, kw) {
			total += 8
			matchedExactly[kw] = true
		}
	}

	tagWords := frag.Tags
	capWords := wordsOf(frag.Capabilities)
	useWhenWords := wordsOf(frag.UseWhen)

	for _, kw := range keywords {
		if matchedExactly[kw] {
			continue
		}
		best := 0
		for _, w := range tagWords {
			if s := fuzzyScore(kw, w, 15); s > best {
				best = s
			}
		}
		for _, w := range capWords {
			if s := fuzzyScore(kw, w, 12); s > best {
				best = s
			}
		}
		for _, w := range useWhenWords {
			if s := fuzzyScore(kw, w, 8); s > best {
				best = s
			}
		}
		total += best
	}

	haystack := strings.ToLower(strings.Join(frag.Tags, " ") + " " +
		strings.Join(frag.Capabilities, " ") + " " + strings.Join(frag.UseWhen, " "))
	if q := strings.ToLower(strings.TrimSpace(req.Query)); q != "" && strings.Contains(haystack, q) {
		total += 20
	}

	if len(req.Categories) > 0 {
		for _, c := range req.Categories {
			if resource.Category(c) == frag.Category {
				total += 15
				break
			}
		}
	} else if req.Category != "" && resource.Category(req.Category) == frag.Category {
		total += 15
	}

	if frag.EstimatedTokens < 1000 {
		total += 5
	} else if frag.EstimatedTokens > 5000 {
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

func fuzzyScore(keyword, word string, weight int) int {
	sim := Similarity(keyword, word)
	if sim < similarityThreshold {
		return 0
	}
	return int(math.Round(float64(weight) * sim))
}

func containsCaseInsensitive(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func wordsOf(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(strings.ToLower(v))...)
	}
	return out
}

// pack implements the greedy knapsack budget packer from spec §4.3: the
// top 3 fragments are force-included (up to 150% of maxTokens, never a
// fragment whose own token count already exceeds maxTokens), the rest
// admitted while cumulative+tokens <= maxTokens.
func pack(sorted []scoredFragment, maxTokens int) ([]scoredFragment, int) {
	limit150 := int(math.Round(1.5 * float64(maxTokens)))
	cumulative := 0
	selected := make([]scoredFragment, 0, len(sorted))

	for i, sf := range sorted {
		tokens := sf.frag.EstimatedTokens
		if i < 3 {
			if tokens > maxTokens {
				continue
			}
			if cumulative+tokens <= limit150 {
				selected = append(selected, sf)
				cumulative += tokens
			}
			continue
		}
		if cumulative+tokens <= maxTokens {
			selected = append(selected, sf)
			cumulative += tokens
		}
	}
	return selected, cumulative
}

func format(result *Result, req Request, keywords []string) {
	switch req.Mode {
	case ModeFull:
		result.AssembledContent = formatFull(result.Fragments)
	case ModeIndex:
		result.CatalogEntries = toCatalogEntries(result.Fragments)
		sortByUseWhenRelevance(result.CatalogEntries, result.Fragments, keywords)
		result.AssembledContent = formatCatalog(result.CatalogEntries)
	case ModeMinimal:
		result.MinimalEntries = toMinimalEntries(result.Fragments, result.MatchScores)
		result.AssembledContent = formatMinimal(result.MinimalEntries)
	default: // ModeCatalog, and unset
		result.CatalogEntries = toCatalogEntries(result.Fragments)
		result.AssembledContent = formatCatalog(result.CatalogEntries)
	}
}

func formatFull(fragments []resource.Fragment) string {
	ordered := make([]resource.Fragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return resource.CategoryPriority(ordered[i].Category) < resource.CategoryPriority(ordered[j].Category)
	})

	var b strings.Builder
	for _, f := range ordered {
		fmt.Fprintf(&b, "## [%s] %s (%d tokens)\n\n", f.Category, f.ID, f.EstimatedTokens)
		b.WriteString(f.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func toCatalogEntries(fragments []resource.Fragment) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(fragments))
	for _, f := range fragments {
		title := f.Title
		if title == "" {
			title = f.ID
		}
		entries = append(entries, CatalogEntry{
			Title:           title,
			Tags:            f.Tags,
			Capabilities:    f.Capabilities,
			EstimatedTokens: f.EstimatedTokens,
			URI:             f.URI,
			Category:        f.Category,
		})
	}
	return entries
}

func formatCatalog(entries []CatalogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s [%s] (%d tokens) %s tags=%v\n", e.Title, e.Category, e.EstimatedTokens, e.URI, e.Tags)
	}
	return b.String()
}

func toMinimalEntries(fragments []resource.Fragment, scores map[string]int) []MinimalEntry {
	entries := make([]MinimalEntry, 0, len(fragments))
	for _, f := range fragments {
		tags := f.Tags
		if len(tags) > 3 {
			tags = tags[:3]
		}
		entries = append(entries, MinimalEntry{
			URI:    f.URI,
			Score:  scores[f.ID],
			Tokens: f.EstimatedTokens,
			Tags:   tags,
		})
	}
	return entries
}

func formatMinimal(entries []MinimalEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s|%d|%d|%v\n", e.URI, e.Score, e.Tokens, e.Tags)
	}
	return b.String()
}

// useWhenRelevance scores frag purely on use-when overlap with keywords,
// the "separate use-when relevance score" spec §4.3 sorts index mode by.
func useWhenRelevance(frag resource.Fragment, keywords []string) int {
	score := 0
	useWhenWords := wordsOf(frag.UseWhen)
	for _, kw := range keywords {
		if containsCaseInsensitive(frag.UseWhen, kw) {
			score += 8
			continue
		}
		best := 0.0
		for _, w := range useWhenWords {
			if sim := Similarity(kw, w); sim > best {
				best = sim
			}
		}
		if best >= similarityThreshold {
			score += int(math.Round(8 * best))
		}
	}
	return score
}

func sortByUseWhenRelevance(entries []CatalogEntry, fragments []resource.Fragment, keywords []string) {
	byURI := make(map[string]resource.Fragment, len(fragments))
	for _, f := range fragments {
		byURI[f.URI] = f
	}
	sort.SliceStable(entries, func(i, j int) bool {
		si := useWhenRelevance(byURI[entries[i].URI], keywords)
		sj := useWhenRelevance(byURI[entries[j].URI], keywords)
		return si > sj
	})
}
