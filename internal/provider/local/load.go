package local

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobrucego/o8fed/internal/preamble"
	"github.com/gobrucego/o8fed/internal/resource"
)

// loadResult bundles the catalog-level Index together with the
// content-bearing fragments search needs, so a single cached load serves
// both fetchIndex and search.
type loadResult struct {
	Index     resource.Index
	Fragments []resource.Fragment
	Resources map[string]resource.Resource // keyed "<category>:<id>"
}

// scanFile reads and parses one resource file into a Resource. id is the
// file stem (or the preamble's own id, if set).
func scanFile(path string, category resource.Category, fallbackID string) (resource.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return resource.Resource{}, err
	}

	fields, body := preamble.Parse(string(data))
	id := fields.ID
	if id == "" {
		id = fallbackID
	}

	r := resource.Resource{
		ID:              id,
		Category:        category,
		Title:           fields.Title,
		Description:     fields.Description,
		Tags:            fields.Tags,
		Capabilities:    fields.Capabilities,
		UseWhen:         fields.UseWhen,
		EstimatedTokens: fields.EstimatedTokens,
		Version:         fields.Version,
		Author:          fields.Author,
		CreatedAt:       fields.CreatedAt,
		UpdatedAt:       fields.UpdatedAt,
		Content:         body,
		Dependencies:    fields.Dependencies,
		Related:         fields.Related,
	}
	r.Normalize()
	return r, nil
}

// loadAll scans every category directory in parallel, recursively walking
// each for .md files (spec §4.9 "index loading").
func (p *Provider) loadAll() (loadResult, error) {
	type dirResult struct {
		resources []resource.Resource
		err       error
	}

	results := make([]dirResult, len(scanDirs))
	var wg sync.WaitGroup
	for i, cd := range scanDirs {
		wg.Add(1)
		go func(i int, cd categoryDir) {
			defer wg.Done()
			resources, err := scanDir(p.cfg.ResourcesPath, cd)
			results[i] = dirResult{resources: resources, err: err}
		}(i, cd)
	}
	wg.Wait()

	var all []resource.Resource
	for _, r := range results {
		if r.err != nil {
			continue // a missing/unreadable category directory is not fatal
		}
		all = append(all, r.resources...)
	}

	fragments := make([]resource.Fragment, 0, len(all))
	metas := make([]resource.Metadata, 0, len(all))
	resourcesByKey := make(map[string]resource.Resource, len(all))

	for _, r := range all {
		uri := p.staticURI(r.Category, r.ID)
		r.SourceURI = uri
		frag := r.ToFragment(uri)
		frag.ID = fmt.Sprintf("%s/%s", r.Category, r.ID)
		fragments = append(fragments, frag)
		metas = append(metas, resource.MetadataFromResource(&r))
		resourcesByKey[cacheKey(r.Category, r.ID)] = r
	}

	idx := resource.BuildIndex(p.label, "1", metas, time.Now())
	return loadResult{Index: idx, Fragments: fragments, Resources: resourcesByKey}, nil
}

func scanDir(root string, cd categoryDir) ([]resource.Resource, error) {
	base := filepath.Join(root, cd.Dir)
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, err
	}

	var out []resource.Resource
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole scan
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), ".md")
		r, err := scanFile(path, cd.Category, stem)
		if err != nil {
			return nil
		}
		out = append(out, r)
		return nil
	})
	return out, walkErr
}

func cacheKey(category resource.Category, id string) string {
	return fmt.Sprintf("%s:%s", category, id)
}
