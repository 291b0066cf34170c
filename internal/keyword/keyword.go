// Package keyword normalizes free text into the deduplicated, lowercased
// keyword sets the fuzzy matcher and index lookup score against (spec
// §4.2, component C2).
package keyword

import (
	"strings"
)

// stopWords is the closed class of 55 English words the spec requires
// implementations to use verbatim for deterministic scoring. Articles,
// conjunctions, prepositions, common auxiliaries, personal pronouns, and
// demonstratives.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true, "nor": true, "so": true,
	"for": true, "yet": true,
	"in": true, "on": true, "at": true, "by": true, "to": true, "of": true,
	"with": true, "from": true, "into": true, "onto": true, "upon": true,
	"is": true, "am": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true,
	"has": true, "have": true, "had": true,
	"will": true, "would": true, "can": true, "could": true,
	"shall": true, "should": true, "may": true, "might": true, "must": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"this": true, "that": true, "these": true, "those": true,
}

// Extract produces a deduplicated, lowercased keyword list from free text:
// lowercase, replace non-alphanumeric-non-hyphen runes with spaces, split
// on whitespace, drop tokens shorter than two characters or in the
// stop-word set.
func Extract(text string) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if stopWords[f] {
			continue
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// IsStopWord reports whether word is in the fixed stop-word list.
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}
