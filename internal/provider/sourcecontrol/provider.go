package sourcecontrol

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gobrucego/o8fed/internal/cache"
	"github.com/gobrucego/o8fed/internal/logging"
	"github.com/gobrucego/o8fed/internal/preamble"
	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/gobrucego/o8fed/internal/provider/httpmeta"
	"github.com/gobrucego/o8fed/internal/ratelimit"
	"github.com/gobrucego/o8fed/internal/resource"
)

const indexCacheKey = "index"

// Provider is the source-control federation backend: one or more remote
// repositories, each classified and indexed by path.
type Provider struct {
	label   string
	cfg     Config
	enabled atomic.Bool

	remotes map[string]Remote // keyed by RepoSpec.Label

	indexCache    *cache.LRU[repoSnapshot]
	resourceCache *cache.LRU[resource.Resource]

	stats   *provider.StatsTracker
	limiter *ratelimit.Limiter

	log *logging.ContextLogger
}

type repoSnapshot struct {
	Index   resource.Index
	Entries map[string]indexedEntry // keyed "<category>:<id>"
}

type indexedEntry struct {
	Meta      resource.Metadata
	RepoLabel string
	Path      string
}

// New constructs a Provider for label, federating every configured repo.
func New(label string, cfg Config) (*Provider, error) {
	cfg = cfg.withDefaults()
	limiter := ratelimit.New(ratelimit.Config{PerMinute: cfg.RateLimit.PerMinute, PerHour: cfg.RateLimit.PerHour}, time.Now())

	remotes := make(map[string]Remote, len(cfg.Repos))
	for _, spec := range cfg.Repos {
		r, err := NewRemote(spec)
		if err != nil {
			return nil, err
		}
		remotes[spec.Label] = r
	}

	p := &Provider{
		label:         label,
		cfg:           cfg,
		remotes:       remotes,
		indexCache:    cache.New[repoSnapshot](1),
		resourceCache: cache.New[resource.Resource](cfg.ResourceCache),
		stats:         provider.NewStatsTracker(time.Now()),
		limiter:       limiter,
		log:           logging.NewContextLogger(nil, map[string]interface{}{"component": "provider", "provider": label}),
	}
	p.enabled.Store(true)
	return p, nil
}

func (p *Provider) Label() string     { return p.label }
func (p *Provider) Priority() int     { return p.cfg.Priority }
func (p *Provider) Enabled() bool     { return p.enabled.Load() }
func (p *Provider) SetEnabled(v bool) { p.enabled.Store(v) }

func (p *Provider) Initialize(ctx context.Context) error {
	if _, err := p.fetchSnapshot(ctx); err != nil {
		p.log.WithError(err).Warn("initial repo snapshot failed")
	}
	return nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	p.indexCache.Clear()
	p.resourceCache.Clear()
	return nil
}

func (p *Provider) admit() error {
	if p.limiter == nil {
		return nil
	}
	res := p.limiter.Admit(time.Now())
	if !res.Allowed {
		return provider.NewRateLimit(p.label, "rate limit bucket exhausted", res.RetryAfterMs)
	}
	return nil
}

func (p *Provider) fetchSnapshot(ctx context.Context) (repoSnapshot, error) {
	start := time.Now()
	snap, err := p.indexCache.GetOrLoad(indexCacheKey, p.cfg.CacheTTL, start, func() (repoSnapshot, error) {
		return p.loadAllRepos(ctx)
	})
	if err != nil {
		p.stats.RecordFailure(time.Since(start))
		p.log.WithError(err).Warn("repo snapshot load failed")
		return repoSnapshot{}, err
	}
	p.stats.RecordSuccess(time.Since(start), time.Now())
	return snap, nil
}

// loadAllRepos fetches each configured repo's tree listing, classifies
// every file, and merges the results into one index (spec §4.10
// "fetchIndex (source-control)").
func (p *Provider) loadAllRepos(ctx context.Context) (repoSnapshot, error) {
	entries := make(map[string]indexedEntry)
	var metas []resource.Metadata

	for _, spec := range p.cfg.Repos {
		remote := p.remotes[spec.Label]
		if err := p.admit(); err != nil {
			return repoSnapshot{}, err
		}
		tree, err := remote.ListTree(ctx)
		if err != nil {
			return repoSnapshot{}, provider.NewProviderError(p.label, "list tree failed for "+spec.Label, 0, err)
		}

		for _, entry := range tree {
			if !strings.HasSuffix(entry.Path, ".md") {
				continue
			}
			category, ok := classify(spec.Label, entry.Path)
			if !ok {
				continue
			}
			id := strings.TrimSuffix(path.Base(entry.Path), ".md")
			tokens := int(entry.Size+3) / 4
			if tokens < 1 {
				tokens = 1
			}
			meta := resource.Metadata{
				ID:              id,
				Category:        category,
				Title:           id,
				EstimatedTokens: tokens,
				SourceURI:       remote.RawURL(entry.Path),
			}
			key := fmt.Sprintf("%s:%s", category, id)
			entries[key] = indexedEntry{Meta: meta, RepoLabel: spec.Label, Path: entry.Path}
			metas = append(metas, meta)
		}
	}

	idx := resource.BuildIndex(p.label, "1", metas, time.Now())
	return repoSnapshot{Index: idx, Entries: entries}, nil
}

func (p *Provider) FetchIndex(ctx context.Context) (resource.Index, error) {
	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		return resource.Index{}, err
	}
	return snap.Index, nil
}

// FetchResource issues one raw-content GET against the file's origin repo,
// parses its preamble, and caches the assembled Resource (spec §4.10).
func (p *Provider) FetchResource(ctx context.Context, category resource.Category, id string) (resource.Resource, error) {
	start := time.Now()
	key := fmt.Sprintf("%s:%s", category, id)

	r, err := p.resourceCache.GetOrLoad(key, p.cfg.ResourceTTL, start, func() (resource.Resource, error) {
		snap, err := p.fetchSnapshot(ctx)
		if err != nil {
			return resource.Resource{}, err
		}
		entry, ok := snap.Entries[key]
		if !ok {
			return resource.Resource{}, provider.NewNotFound(p.label, fmt.Sprintf("resource %s not found", key))
		}

		if err := p.admit(); err != nil {
			return resource.Resource{}, err
		}
		remote := p.remotes[entry.RepoLabel]
		data, err := remote.GetRawFile(ctx, entry.Path)
		if err != nil {
			return resource.Resource{}, provider.NewProviderError(p.label, "fetch raw file failed", 0, err)
		}

		fields, body := preamble.Parse(string(data))
		resID := fields.ID
		if resID == "" {
			resID = id
		}
		res := resource.Resource{
			ID:              resID,
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
			Source:          p.label,
			SourceURI:       entry.Meta.SourceURI,
			Content:         body,
			Dependencies:    fields.Dependencies,
			Related:         fields.Related,
		}
		res.Normalize()
		return res, nil
	})
	if err != nil {
		p.stats.RecordFailure(time.Since(start))
		p.log.WithError(err).WithField("key", key).Warn("fetch resource failed")
		return resource.Resource{}, err
	}
	p.stats.RecordSuccess(time.Since(start), time.Now())
	p.stats.AddResourcesFetched(1)
	p.stats.AddTokensFetched(int64(r.EstimatedTokens))
	return r, nil
}

func (p *Provider) Search(ctx context.Context, opts provider.SearchOptions) (provider.SearchResponse, error) {
	start := time.Now()
	snap, err := p.fetchSnapshot(ctx)
	if err != nil {
		return provider.SearchResponse{}, err
	}

	req := httpmeta.SearchRequest{
		Query:        opts.Query,
		Categories:   opts.Categories,
		RequiredTags: opts.RequiredTags,
		OptionalTags: opts.Tags,
		MinScore:     opts.MinScore,
	}

	results := make([]provider.SearchResult, 0, len(snap.Entries))
	var fragments []resource.Fragment
	for _, entry := range snap.Entries {
		c := httpmeta.Component{
			ID: entry.Meta.ID, Category: entry.Meta.Category, Title: entry.Meta.Title,
			EstimatedTokens: entry.Meta.EstimatedTokens,
		}
		score := httpmeta.Score(c, req)
		if score < opts.MinScore {
			continue
		}
		results = append(results, provider.SearchResult{
			Resource:       entry.Meta,
			Score:          score,
			Reasons:        httpmeta.Reasons(c, opts.Query),
			SourceProvider: p.label,
		})
		fragments = append(fragments, resource.Fragment{
			ID: entry.Meta.ID, Category: entry.Meta.Category, EstimatedTokens: entry.Meta.EstimatedTokens,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	total := len(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	facets := resource.ComputeFacets(fragments)
	p.stats.RecordSuccess(time.Since(start), time.Now())
	return provider.SearchResponse{Results: results, Facets: facets, Total: total}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (provider.HealthRecord, error) {
	start := time.Now()
	idx, err := p.FetchIndex(ctx)
	responseTime := time.Since(start)

	reachable := err == nil
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	rate := p.stats.SuccessRate()

	status := provider.StatusUnhealthy
	switch {
	case p.stats.ConsecutiveFailures() >= 3:
		status = provider.StatusUnhealthy
	case reachable && idx.Total > 0 && rate >= 0.9:
		status = provider.StatusHealthy
	case reachable && idx.Total > 0:
		status = provider.StatusDegraded
	}

	if status != provider.StatusHealthy {
		p.log.WithField("status", string(status)).Warn(p.GetStats().String())
	}

	return provider.HealthRecord{
		Provider:     p.label,
		Status:       status,
		LastCheck:    time.Now(),
		ResponseTime: responseTime,
		Reachable:    reachable,
		Error:        errMsg,
		Metrics: provider.HealthMetrics{
			SuccessRate:         rate,
			ConsecutiveFailures: p.stats.ConsecutiveFailures(),
			LastSuccess:         p.stats.LastSuccess(),
		},
	}, nil
}

func (p *Provider) GetStats() provider.StatsRecord {
	return p.stats.Snapshot(p.label, provider.RateLimitSnapshot{})
}

func (p *Provider) ResetStats() {
	p.stats.Reset(time.Now())
}

var _ provider.Provider = (*Provider)(nil)
