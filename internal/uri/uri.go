// Package uri implements the resource-addressing grammar (spec §4.1,
// component C1): static URIs of the form scheme://category/resource-id and
// dynamic match URIs of the form scheme://[category/]match?query-string.
package uri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Mode selects the output shape of a dynamic match request.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeCatalog Mode = "catalog"
	ModeIndex   Mode = "index"
	ModeMinimal Mode = "minimal"
)

// Kind distinguishes the two URI variants this grammar recognizes.
type Kind int

const (
	KindStatic Kind = iota
	KindDynamic
)

// Defaults for dynamic match parameters, per spec §4.1's table.
const (
	DefaultMaxTokens  = 3000
	DefaultMaxResults = 15
	DefaultMinScore   = 10
	DefaultMode       = ModeCatalog
)

// ParsedURI is the result of parsing either URI variant.
type ParsedURI struct {
	Kind     Kind
	Category string // static: required; dynamic: optional category restriction when path is "category/match"

	// Dynamic-only fields.
	Query      string
	MaxTokens  int
	MaxResults int
	MinScore   int
	Tags       []string
	Categories []string
	Mode       Mode

	// Static-only field.
	ResourceID string
}

// Error is returned for any malformed URI; the spec's InvalidURI kind.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "invalid uri: " + e.Reason }

func invalid(format string, args ...interface{}) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Parse parses raw against the given scheme (the literal prefix, e.g.
// "o8://"). scheme must include the "://" separator.
func Parse(scheme, raw string) (ParsedURI, error) {
	if !strings.HasPrefix(raw, scheme) {
		return ParsedURI{}, invalid("scheme mismatch: expected prefix %q", scheme)
	}
	rest := strings.TrimPrefix(raw, scheme)

	path := rest
	var rawQuery string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		path = rest[:i]
		rawQuery = rest[i+1:]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return ParsedURI{}, invalid("missing path")
	}

	segments := strings.Split(path, "/")

	// Dynamic: either "match" alone, or "category/match".
	if segments[len(segments)-1] == "match" {
		var category string
		switch len(segments) {
		case 1:
			// bare "match"
		case 2:
			category = segments[0]
		default:
			return ParsedURI{}, invalid("malformed dynamic path %q", path)
		}
		return parseDynamic(category, rawQuery)
	}

	if len(segments) != 2 {
		return ParsedURI{}, invalid("static path must have exactly two segments, got %q", path)
	}
	category, id := segments[0], segments[1]
	if strings.Contains(id, "/") {
		return ParsedURI{}, invalid("resource id must not contain slashes: %q", id)
	}
	return ParsedURI{Kind: KindStatic, Category: category, ResourceID: id}, nil
}

func parseDynamic(category, rawQuery string) (ParsedURI, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ParsedURI{}, invalid("unparseable query string: %v", err)
	}

	query := values.Get("query")
	if query == "" {
		return ParsedURI{}, invalid("missing required 'query' parameter")
	}

	result := ParsedURI{
		Kind:       KindDynamic,
		Category:   category,
		Query:      query,
		MaxTokens:  DefaultMaxTokens,
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
		Mode:       DefaultMode,
	}

	if v := values.Get("maxTokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return ParsedURI{}, invalid("maxTokens must be a positive integer, got %q", v)
		}
		result.MaxTokens = n
	}
	if v := values.Get("maxResults"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return ParsedURI{}, invalid("maxResults must be a positive integer, got %q", v)
		}
		result.MaxResults = n
	}
	if v := values.Get("minScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return ParsedURI{}, invalid("minScore must be an integer 0-100, got %q", v)
		}
		result.MinScore = n
	}
	if v := values.Get("tags"); v != "" {
		result.Tags = splitCSV(v)
	}
	if v := values.Get("categories"); v != "" {
		result.Categories = splitCSV(v)
	}
	if v := values.Get("mode"); v != "" {
		switch Mode(v) {
		case ModeFull, ModeCatalog, ModeIndex, ModeMinimal:
			result.Mode = Mode(v)
		default:
			return ParsedURI{}, invalid("unknown mode %q", v)
		}
	}

	return result, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// String reconstructs a URI string for p under scheme. Dynamic URIs carry
// their query parameters sorted by key (url.Values.Encode), and parameters
// equal to their defaults are omitted (the round-trip property in spec §8
// only requires equivalence modulo ordering, but a stable order makes tests
// reproducible).
func String(scheme string, p ParsedURI) string {
	if p.Kind == KindStatic {
		return scheme + p.Category + "/" + p.ResourceID
	}

	path := "match"
	if p.Category != "" {
		path = p.Category + "/match"
	}

	values := url.Values{}
	values.Set("query", p.Query)
	if p.MaxTokens != 0 && p.MaxTokens != DefaultMaxTokens {
		values.Set("maxTokens", strconv.Itoa(p.MaxTokens))
	}
	if p.MaxResults != 0 && p.MaxResults != DefaultMaxResults {
		values.Set("maxResults", strconv.Itoa(p.MaxResults))
	}
	if p.MinScore != 0 && p.MinScore != DefaultMinScore {
		values.Set("minScore", strconv.Itoa(p.MinScore))
	}
	if len(p.Tags) > 0 {
		values.Set("tags", strings.Join(p.Tags, ","))
	}
	if len(p.Categories) > 0 {
		values.Set("categories", strings.Join(p.Categories, ","))
	}
	if p.Mode != "" && p.Mode != DefaultMode {
		values.Set("mode", string(p.Mode))
	}

	return scheme + path + "?" + values.Encode()
}
