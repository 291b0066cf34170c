// Package preamble parses the delimited metadata block at the top of every
// resource file (spec §6 "Resource metadata preamble"): an opening
// delimiter line, key/value (or key + indented list) lines, a closing
// delimiter, then the body text.
package preamble

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Fields is the recognized key set from spec §6, already typed and
// defaulted; unrecognized keys are preserved in Extra.
type Fields struct {
	ID              string
	Category        string
	Title           string
	Description     string
	Tags            []string
	Capabilities    []string
	UseWhen         []string
	EstimatedTokens int
	Version         string
	Author          string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
	Dependencies    []string
	Related         []string
	Extra           map[string]string
}

// Parse splits raw file content into its preamble fields and body text. A
// file with no opening delimiter is treated as having an empty preamble and
// the entire content as body.
func Parse(raw string) (Fields, string) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return Fields{Extra: map[string]string{}}, raw
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		return Fields{Extra: map[string]string{}}, raw
	}

	block := strings.Join(lines[1:closeIdx], "\n")
	body := ""
	if closeIdx+1 < len(lines) {
		body = strings.TrimPrefix(strings.Join(lines[closeIdx+1:], "\n"), "\n")
	}

	var raw2 map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw2); err != nil || raw2 == nil {
		return Fields{Extra: map[string]string{}}, body
	}

	return fromYAML(raw2), body
}

var recognized = map[string]bool{
	"id": true, "category": true, "title": true, "description": true,
	"tags": true, "capabilities": true, "useWhen": true,
	"estimatedTokens": true, "version": true, "author": true,
	"createdAt": true, "updatedAt": true, "dependencies": true, "related": true,
}

func fromYAML(m map[string]interface{}) Fields {
	f := Fields{Extra: map[string]string{}}
	for k, v := range m {
		if !recognized[k] {
			f.Extra[k] = stringify(v)
			continue
		}
		switch k {
		case "id":
			f.ID = stringify(v)
		case "category":
			f.Category = stringify(v)
		case "title":
			f.Title = stringify(v)
		case "description":
			f.Description = stringify(v)
		case "tags":
			f.Tags = stringList(v)
		case "capabilities":
			f.Capabilities = stringList(v)
		case "useWhen":
			f.UseWhen = stringList(v)
		case "estimatedTokens":
			f.EstimatedTokens = intValue(v)
		case "version":
			f.Version = stringify(v)
		case "author":
			f.Author = stringify(v)
		case "createdAt":
			f.CreatedAt = parseTime(stringify(v))
		case "updatedAt":
			f.UpdatedAt = parseTime(stringify(v))
		case "dependencies":
			f.Dependencies = stringList(v)
		case "related":
			f.Related = stringList(v)
		}
	}
	return f
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}

func intValue(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func stringList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, stringify(item))
	}
	return out
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	formats := []string{time.RFC3339, "2006-01-02"}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}
