package invindex

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobrucego/o8fed/internal/keyword"
	"github.com/gobrucego/o8fed/internal/resource"
)

// Tier names recorded in Metrics, per spec §4.4.
const (
	TierQuick        = "quick"
	TierIndex        = "index"
	TierFuzzyFallback = "fuzzy-fallback"

	quickLookupTTL     = 15 * time.Minute
	defaultMaxResults  = 5
	tier2ExactWeight   = 20
	tier2PartialWeight = 10
)

// Options configures a Lookup call.
type Options struct {
	MaxResults int
	MinScore   int
	Categories []string
}

// Metrics is recorded on every Lookup call, regardless of which tier served it.
type Metrics struct {
	Tier         string
	LatencyMs    int64
	ResultCount  int
	ApproxTokens int
}

// FuzzyFallback is the tier-3 escalation hook: the caller (a provider)
// supplies its own fuzzy matcher invocation since the index store has no
// access to full fragment content.
type FuzzyFallback func(query string, opts Options) (text string, resultCount int, err error)

var wordCharsRe = regexp.MustCompile(`[^a-z0-9\s-]+`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeQuery lowercases, strips non-word characters, and collapses
// whitespace to hyphens, per spec §4.4 tier 1.
func NormalizeQuery(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	stripped := wordCharsRe.ReplaceAllString(lower, "")
	hyphenated := whitespaceRe.ReplaceAllString(strings.TrimSpace(stripped), "-")
	return strings.Trim(hyphenated, "-")
}

// Store owns a mutable set of index artifacts plus the quick-lookup cache
// that tier 2 writes back into, guarded by a single RWMutex (spec §5:
// cache lookups are non-suspending and mutated under a short critical
// section).
type Store struct {
	mu        sync.RWMutex
	artifacts Artifacts
}

// NewStore wraps artifacts for concurrent lookups.
func NewStore(artifacts Artifacts) *Store {
	return &Store{artifacts: artifacts}
}

// Replace swaps in a freshly-built artifact set (e.g. after a rebuild).
func (s *Store) Replace(artifacts Artifacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = artifacts
}

// Lookup runs the three-tier strategy from spec §4.4.
func (s *Store) Lookup(query string, opts Options, fallback FuzzyFallback, now time.Time) (string, Metrics, error) {
	start := now
	if opts.MaxResults == 0 {
		opts.MaxResults = defaultMaxResults
	}

	if text, count, ok := s.tier1(query, now); ok {
		return text, Metrics{Tier: TierQuick, LatencyMs: elapsedMs(start, now), ResultCount: count, ApproxTokens: resource.EstimateTokens(text)}, nil
	}

	text, count, err := s.tier2(query, opts, now)
	if err == nil && count >= 2 {
		return text, Metrics{Tier: TierIndex, LatencyMs: elapsedMs(start, now), ResultCount: count, ApproxTokens: resource.EstimateTokens(text)}, nil
	}

	if fallback == nil {
		return text, Metrics{Tier: TierFuzzyFallback, LatencyMs: elapsedMs(start, now), ResultCount: count, ApproxTokens: resource.EstimateTokens(text)}, err
	}
	fbText, fbCount, fbErr := fallback(query, opts)
	return fbText, Metrics{Tier: TierFuzzyFallback, LatencyMs: elapsedMs(start, now), ResultCount: fbCount, ApproxTokens: resource.EstimateTokens(fbText)}, fbErr
}

func elapsedMs(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

func (s *Store) tier1(query string, now time.Time) (string, int, bool) {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return "", 0, false
	}

	s.mu.RLock()
	entry, ok := s.artifacts.QuickLookup.CommonQueries[normalized]
	s.mu.RUnlock()
	if !ok || entry.CachedAt.IsZero() || len(entry.URIs) == 0 {
		return "", 0, false
	}
	if now.Sub(entry.CachedAt) >= quickLookupTTL {
		return "", 0, false
	}
	return formatQuickLookup(entry), len(entry.URIs), true
}

func formatQuickLookup(entry QuickLookupEntry) string {
	var b strings.Builder
	for _, uri := range entry.URIs {
		fmt.Fprintf(&b, "%s\n", uri)
	}
	return b.String()
}

type scoredScenario struct {
	hash  string
	entry ScenarioEntry
	score int
}

func (s *Store) tier2(query string, opts Options, now time.Time) (string, int, error) {
	keywords := keyword.Extract(query)
	if len(keywords) == 0 {
		return "", 0, nil
	}

	s.mu.RLock()
	candidateHashes := make(map[string]bool)
	for _, kw := range keywords {
		for _, h := range s.artifacts.Keywords.Keywords[kw] {
			candidateHashes[h] = true
		}
	}

	scored := make([]scoredScenario, 0, len(candidateHashes))
	for h := range candidateHashes {
		entry, ok := s.artifacts.Scenarios.Index[h]
		if !ok {
			continue
		}
		if !categoryAllowed(entry.Category, opts.Categories) {
			continue
		}
		score := scoreScenario(entry, keywords)
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredScenario{hash: h, entry: entry, score: score})
	}
	s.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].hash < scored[j].hash
	})

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	if len(scored) < 2 {
		return formatTier2(scored), len(scored), nil
	}

	text := formatTier2(scored)
	s.cacheQuickLookup(query, scored, text, now)
	return text, len(scored), nil
}

func scoreScenario(entry ScenarioEntry, queryKeywords []string) int {
	entryKwSet := make(map[string]bool, len(entry.Keywords))
	for _, kw := range entry.Keywords {
		entryKwSet[kw] = true
	}

	score := 0
	for _, qkw := range queryKeywords {
		if entryKwSet[qkw] {
			score += tier2ExactWeight
			continue
		}
		matched := false
		for _, ekw := range entry.Keywords {
			if strings.Contains(ekw, qkw) || strings.Contains(qkw, ekw) {
				matched = true
				break
			}
		}
		if matched {
			score += tier2PartialWeight
		}
	}
	return score
}

func categoryAllowed(category resource.Category, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, c := range allowed {
		if resource.Category(c) == category {
			return true
		}
	}
	return false
}

func formatTier2(scored []scoredScenario) string {
	var b strings.Builder
	for _, sc := range scored {
		fmt.Fprintf(&b, "- [%s] %s (%d tokens) %s\n", sc.entry.Category, sc.entry.ScenarioText, sc.entry.EstimatedTokens, sc.entry.URI)
	}
	return b.String()
}

// cacheQuickLookup takes its own short write-lock critical section; callers
// must not be holding any lock when they call it.
func (s *Store) cacheQuickLookup(query string, scored []scoredScenario, text string, now time.Time) {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return
	}
	uris := make([]string, 0, len(scored))
	totalTokens := 0
	for _, sc := range scored {
		uris = append(uris, sc.entry.URI)
		totalTokens += sc.entry.EstimatedTokens
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts.QuickLookup.CommonQueries == nil {
		s.artifacts.QuickLookup.CommonQueries = make(map[string]QuickLookupEntry)
	}
	s.artifacts.QuickLookup.CommonQueries[normalized] = QuickLookupEntry{
		URIs:     uris,
		Tokens:   totalTokens,
		CachedAt: now,
	}
}
