package sourcecontrol

import (
	"context"
	"testing"
	"time"

	"github.com/gobrucego/o8fed/internal/cache"
	"github.com/gobrucego/o8fed/internal/logging"
	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/gobrucego/o8fed/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownOverride(t *testing.T) {
	c, ok := classify("anthropics/skills", "skills/foo.md")
	require.True(t, ok)
	assert.Equal(t, resource.CategorySkill, c)
}

func TestClassifyPluralHeuristic(t *testing.T) {
	c, ok := classify("someone/repo", "agents/foo.md")
	require.True(t, ok)
	assert.Equal(t, resource.CategoryAgent, c)
}

func TestClassifyUnknownTopLevelDir(t *testing.T) {
	_, ok := classify("someone/repo", "docs/readme.md")
	assert.False(t, ok)
}

// fakeRemote is an in-memory Remote used to exercise Provider without a
// real Gitea/GitLab backend.
type fakeRemote struct {
	tree  []TreeEntry
	files map[string][]byte
}

func (f *fakeRemote) ListTree(ctx context.Context) ([]TreeEntry, error) { return f.tree, nil }
func (f *fakeRemote) GetRawFile(ctx context.Context, path string) ([]byte, error) {
	return f.files[path], nil
}
func (f *fakeRemote) RawURL(path string) string { return "https://example.test/raw/" + path }

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	remote := &fakeRemote{
		tree: []TreeEntry{
			{Path: "agents/python.md", Size: 40},
			{Path: "docs/readme.md", Size: 10},
		},
		files: map[string][]byte{
			"agents/python.md": []byte("---\ntitle: Python Agent\ntags:\n  - python\n---\nbody"),
		},
	}
	cfg := DefaultConfig()
	cfg.Repos = []RepoSpec{{Kind: "gitea", Label: "someone/repo", Branch: "main"}}
	p := &Provider{
		label:         "sourcecontrol",
		cfg:           cfg,
		remotes:       map[string]Remote{"someone/repo": remote},
		indexCache:    cache.New[repoSnapshot](1),
		resourceCache: cache.New[resource.Resource](10),
		stats:         provider.NewStatsTracker(time.Now()),
		log:           logging.NewContextLogger(nil, map[string]interface{}{"component": "provider", "provider": "sourcecontrol"}),
	}
	p.enabled.Store(true)
	return p
}

func TestProviderFetchIndexSkipsUnclassifiedFiles(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Total)
}

func TestProviderFetchResourceParsesPreamble(t *testing.T) {
	p := newTestProvider(t)
	r, err := p.FetchResource(context.Background(), resource.CategoryAgent, "python")
	require.NoError(t, err)
	assert.Equal(t, "Python Agent", r.Title)
	assert.Equal(t, []string{"python"}, r.Tags)
	assert.Equal(t, "body", r.Content)
}

func TestProviderFetchResourceNotFound(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.FetchResource(context.Background(), resource.CategoryAgent, "missing")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindNotFound))
}

func TestProviderSearchMatchesTags(t *testing.T) {
	p := newTestProvider(t)
	resp, err := p.Search(context.Background(), provider.SearchOptions{Query: "python"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "python", resp.Results[0].Resource.ID)
}
