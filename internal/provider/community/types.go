package community

import (
	"encoding/json"

	"github.com/gobrucego/o8fed/internal/preamble"
	"github.com/gobrucego/o8fed/internal/provider/httpmeta"
	"github.com/gobrucego/o8fed/internal/resource"
)

// rawComponent is one catalog entry as the community API shapes it.
type rawComponent struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
	Downloads   int      `json:"downloads"`
	Validation  *struct {
		Valid bool `json:"valid"`
		Score int  `json:"score"`
	} `json:"validation"`
}

// typeToCategory maps the catalog's richer component taxonomy down onto
// this federation's five abstract categories (spec §4.10).
var typeToCategory = map[string]resource.Category{
	"agent":    resource.CategoryAgent,
	"command":  resource.CategoryWorkflow,
	"skill":    resource.CategorySkill,
	"mcp":      resource.CategoryPattern,
	"hook":     resource.CategoryPattern,
	"setting":  resource.CategoryPattern,
	"template": resource.CategoryExample,
}

// decodeCatalog accepts any of the three top-level JSON layouts the spec
// names: a flat array, {components: [...]}, or {agents: [...], skills:
// [...], ...} (every array-valued top-level key is flattened). Dispatch is
// by shape-inspection on the first byte and then on key presence, per
// SPEC_FULL.md's "Dynamic typing in the source" design note.
func decodeCatalog(data []byte) ([]rawComponent, error) {
	trimmed := skipWhitespace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var flat []rawComponent
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, err
		}
		return flat, nil
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}

	if raw, ok := generic["components"]; ok {
		var components []rawComponent
		if err := json.Unmarshal(raw, &components); err != nil {
			return nil, err
		}
		return components, nil
	}

	var all []rawComponent
	for _, raw := range generic {
		var list []rawComponent
		if err := json.Unmarshal(raw, &list); err != nil {
			continue // not an array-valued key; skip per spec's "flatten all array-valued top-level keys"
		}
		all = append(all, list...)
	}
	return all, nil
}

func skipWhitespace(data []byte) []byte {
	i := 0
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return data[i:]
		}
	}
	return data
}

// toComponent maps one rawComponent plus its provider-computed static URI
// into the shared httpmeta.Component, parsing an embedded metadata
// preamble out of Content for author/version/tags/capabilities/useWhen
// not carried as top-level JSON fields (spec §4.10: "author parsed from
// the metadata preamble inside content").
func toComponent(rc rawComponent, scheme string) httpmeta.Component {
	category, ok := typeToCategory[rc.Type]
	if !ok {
		category = resource.CategoryPattern
	}

	fields, body := preamble.Parse(rc.Content)

	title := rc.Title
	if title == "" {
		title = rc.Name
	}
	if title == "" {
		title = fields.Title
	}

	tags := rc.Tags
	if len(tags) == 0 {
		tags = fields.Tags
	}

	estimatedTokens := fields.EstimatedTokens
	if estimatedTokens < 1 {
		estimatedTokens = resource.EstimateTokens(body)
	}

	var validation *httpmeta.Validation
	if rc.Validation != nil {
		validation = &httpmeta.Validation{Valid: rc.Validation.Valid, Score: rc.Validation.Score}
	}

	id := rc.ID
	if id == "" {
		id = fields.ID
	}

	return httpmeta.Component{
		ID:              id,
		Category:        category,
		Title:           title,
		Description:     rc.Description,
		Tags:            tags,
		Capabilities:    fields.Capabilities,
		UseWhen:         fields.UseWhen,
		EstimatedTokens: estimatedTokens,
		Version:         fields.Version,
		Author:          fields.Author,
		SourceURI:       scheme + string(category) + "/" + id,
		Content:         body,
		Downloads:       rc.Downloads,
		Validation:      validation,
	}
}
