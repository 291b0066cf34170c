package invindex

import (
	"hash/fnv"
	"strconv"
	"time"

	"github.com/gobrucego/o8fed/internal/keyword"
	"github.com/gobrucego/o8fed/internal/resource"
)

const schemaVersion = "1"

// HashScenario computes the stable 64-bit FNV-1a hash of scenarioText and
// fragmentID, with a NUL byte written between the two, per spec §4.5's
// "H(scenario-text + fragment-id)" requirement (any deterministic 64-bit
// hash is acceptable; this module picks FNV).
func HashScenario(scenarioText, fragmentID string) string {
	h := fnv.New64a()
	h.Write([]byte(scenarioText))
	h.Write([]byte{0})
	h.Write([]byte(fragmentID))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Build walks every use-when entry of every fragment and emits the three
// index artifacts described in spec §4.5. commonQueries optionally seeds
// the quick-lookup cache (may be nil/empty).
func Build(fragments []resource.Fragment, commonQueries []string, now time.Time) Artifacts {
	scenarios := make(map[string]ScenarioEntry)
	keywordMap := make(map[string]map[string]bool)

	for _, frag := range fragments {
		for _, scenario := range frag.UseWhen {
			h := HashScenario(scenario, frag.ID)
			kws := keyword.Extract(scenario)
			scenarios[h] = ScenarioEntry{
				ScenarioText:     scenario,
				Keywords:         kws,
				URI:              frag.URI,
				Category:         frag.Category,
				EstimatedTokens:  frag.EstimatedTokens,
				DefaultRelevance: defaultRelevance(frag),
			}
			for _, kw := range kws {
				if keywordMap[kw] == nil {
					keywordMap[kw] = make(map[string]bool)
				}
				keywordMap[kw][h] = true
			}
		}
	}

	flatKeywords := make(map[string][]string, len(keywordMap))
	for kw, hashes := range keywordMap {
		list := make([]string, 0, len(hashes))
		for h := range hashes {
			list = append(list, h)
		}
		flatKeywords[kw] = list
	}

	quickLookup := make(map[string]QuickLookupEntry)
	for _, q := range commonQueries {
		normalized := NormalizeQuery(q)
		if normalized == "" {
			continue
		}
		// Seeded entries are computed lazily by Lookup on first miss; we
		// only reserve the slot here so a cold seed list still produces a
		// deterministic, empty-but-present quick-lookup file.
		if _, exists := quickLookup[normalized]; !exists {
			quickLookup[normalized] = QuickLookupEntry{CachedAt: now}
		}
	}

	return Artifacts{
		Scenarios: ScenarioIndex{
			Version:        schemaVersion,
			Generated:      now,
			TotalFragments: len(fragments),
			Index:          scenarios,
			Stats:          IndexStats{TotalScenarios: len(scenarios), TotalKeywords: len(flatKeywords)},
		},
		Keywords: KeywordIndex{
			Version:  schemaVersion,
			Keywords: flatKeywords,
			Stats:    IndexStats{TotalScenarios: len(scenarios), TotalKeywords: len(flatKeywords)},
		},
		QuickLookup: QuickLookupIndex{
			Version:       schemaVersion,
			CommonQueries: quickLookup,
		},
	}
}

func defaultRelevance(frag resource.Fragment) int {
	if frag.EstimatedTokens < 1000 {
		return 60
	}
	if frag.EstimatedTokens > 5000 {
		return 40
	}
	return 50
}
