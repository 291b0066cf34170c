package fuzzy

import (
	"fmt"
	"strings"

	"github.com/gobrucego/o8fed/internal/resource"
)

// Reasons builds at most 3 human-readable match-reason strings for frag
// against keywords/req, naming matched tags, overlapping capabilities, and
// an explicit category match. The local provider uses it; the HTTP
// providers build their reasons with httpmeta.Reasons, which applies the
// same 3-string cap.
func Reasons(frag resource.Fragment, keywords []string, req Request) []string {
	var reasons []string

	var matchedTags []string
	tagSet := make(map[string]bool, len(frag.Tags))
	for _, t := range frag.Tags {
		tagSet[strings.ToLower(t)] = true
	}
	for _, kw := range keywords {
		if tagSet[kw] {
			matchedTags = append(matchedTags, kw)
		}
	}
	if len(matchedTags) > 0 {
		reasons = append(reasons, fmt.Sprintf("matched tags: %s", strings.Join(matchedTags, ", ")))
	}

	if len(reasons) < 3 {
		var matchedCaps []string
		for _, cap := range frag.Capabilities {
			for _, kw := range keywords {
				if strings.Contains(strings.ToLower(cap), kw) {
					matchedCaps = append(matchedCaps, cap)
					break
				}
			}
			if len(matchedCaps) == 2 {
				break
			}
		}
		if len(matchedCaps) > 0 {
			reasons = append(reasons, fmt.Sprintf("capability overlap: %s", strings.Join(matchedCaps, ", ")))
		}
	}

	if len(reasons) < 3 {
		if (req.Category != "" && resource.Category(req.Category) == frag.Category) || containsCategory(req.Categories, frag.Category) {
			reasons = append(reasons, fmt.Sprintf("category match: %s", frag.Category))
		}
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

func containsCategory(categories []string, target resource.Category) bool {
	for _, c := range categories {
		if resource.Category(c) == target {
			return true
		}
	}
	return false
}
