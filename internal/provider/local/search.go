package local

import (
	"sort"
	"time"

	"github.com/gobrucego/o8fed/internal/provider"
)

// sortResults reorders results in place per the dynamic-URI sort
// parameters. "relevance" (or anything unrecognized) keeps the order
// fuzzy.Match already produced. "popularity" also falls back to relevance:
// the local provider has no popularity signal of its own.
func sortResults(results []provider.SearchResult, sortBy, direction string) {
	desc := direction != "asc"

	var less func(i, j int) bool
	switch sortBy {
	case "tokens":
		less = func(i, j int) bool {
			a, b := results[i].Resource.EstimatedTokens, results[j].Resource.EstimatedTokens
			if desc {
				return a > b
			}
			return a < b
		}
	case "date":
		less = func(i, j int) bool {
			ai, bi := timeOrZero(results[i].Resource.CreatedAt), timeOrZero(results[j].Resource.CreatedAt)
			if desc {
				return ai.After(bi)
			}
			return ai.Before(bi)
		}
	default:
		return
	}
	sort.SliceStable(results, less)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func paginate(results []provider.SearchResult, offset, limit int) []provider.SearchResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []provider.SearchResult{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
