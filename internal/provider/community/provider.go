package community

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gobrucego/o8fed/internal/cache"
	"github.com/gobrucego/o8fed/internal/httpclient"
	"github.com/gobrucego/o8fed/internal/logging"
	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/gobrucego/o8fed/internal/provider/httpmeta"
	"github.com/gobrucego/o8fed/internal/ratelimit"
	"github.com/gobrucego/o8fed/internal/resource"
)

const catalogCacheKey = "catalog"

// Provider is the community-catalog federation backend.
type Provider struct {
	label   string
	cfg     Config
	enabled atomic.Bool

	client        *httpclient.Client
	indexCache    *cache.LRU[catalogSnapshot]
	resourceCache *cache.LRU[resource.Resource]

	stats   *provider.StatsTracker
	limiter *ratelimit.Limiter

	log *logging.ContextLogger
}

type catalogSnapshot struct {
	Index      resource.Index
	Components map[string]httpmeta.Component // keyed "<category>:<id>"
}

// New constructs a Provider for label, talking to cfg.APIURL.
func New(label string, cfg Config) *Provider {
	cfg = cfg.withDefaults()
	limiter := ratelimit.New(ratelimit.Config{PerMinute: cfg.RateLimit.PerMinute, PerHour: cfg.RateLimit.PerHour}, time.Now())
	p := &Provider{
		label:         label,
		cfg:           cfg,
		client:        httpclient.New(label, httpclient.Config{Timeout: cfg.Timeout, RetryAttempts: cfg.RetryAttempts}, limiter),
		indexCache:    cache.New[catalogSnapshot](1),
		resourceCache: cache.New[resource.Resource](cfg.ResourceCache),
		stats:         provider.NewStatsTracker(time.Now()),
		limiter:       limiter,
		log:           logging.NewContextLogger(nil, map[string]interface{}{"component": "provider", "provider": label}),
	}
	p.enabled.Store(true)
	return p
}

func (p *Provider) Label() string     { return p.label }
func (p *Provider) Priority() int     { return p.cfg.Priority }
func (p *Provider) Enabled() bool     { return p.enabled.Load() }
func (p *Provider) SetEnabled(v bool) { p.enabled.Store(v) }

// Initialize performs a non-fatal initial fetch, logging failures rather
// than surfacing them (spec §4.8: "failures non-fatal except ... Local").
func (p *Provider) Initialize(ctx context.Context) error {
	if _, err := p.fetchCatalog(ctx); err != nil {
		p.log.WithError(err).Warn("initial catalog fetch failed")
	}
	return nil
}

// Shutdown flushes both caches. Idempotent.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.indexCache.Clear()
	p.resourceCache.Clear()
	return nil
}

func (p *Provider) fetchCatalog(ctx context.Context) (catalogSnapshot, error) {
	start := time.Now()
	snapshot, err := p.indexCache.GetOrLoad(catalogCacheKey, p.cfg.CacheTTL, start, func() (catalogSnapshot, error) {
		return p.loadCatalog(ctx)
	})
	if err != nil {
		p.stats.RecordFailure(time.Since(start))
		p.log.WithError(err).Warn("catalog load failed")
		return catalogSnapshot{}, err
	}
	p.stats.RecordSuccess(time.Since(start), time.Now())
	return snapshot, nil
}

func (p *Provider) loadCatalog(ctx context.Context) (catalogSnapshot, error) {
	result, err := p.client.Get(ctx, p.cfg.APIURL, "")
	if err != nil {
		return catalogSnapshot{}, err
	}

	raw, err := decodeCatalog(result.Body)
	if err != nil {
		return catalogSnapshot{}, provider.NewProviderError(p.label, "malformed catalog JSON", 0, err)
	}

	components := make(map[string]httpmeta.Component, len(raw))
	metas := make([]resource.Metadata, 0, len(raw))
	for _, rc := range raw {
		c := toComponent(rc, p.cfg.Scheme)
		if !categoryAllowed(c.Category, p.cfg.Categories) {
			continue
		}
		components[fmt.Sprintf("%s:%s", c.Category, c.ID)] = c
		metas = append(metas, c.ToMetadata())
	}

	idx := resource.BuildIndex(p.label, "1", metas, time.Now())
	return catalogSnapshot{Index: idx, Components: components}, nil
}

func categoryAllowed(c resource.Category, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if resource.Category(a) == c {
			return true
		}
	}
	return false
}

func (p *Provider) FetchIndex(ctx context.Context) (resource.Index, error) {
	snapshot, err := p.fetchCatalog(ctx)
	if err != nil {
		return resource.Index{}, err
	}
	return snapshot.Index, nil
}

func (p *Provider) FetchResource(ctx context.Context, category resource.Category, id string) (resource.Resource, error) {
	start := time.Now()
	key := fmt.Sprintf("%s:%s", category, id)

	r, err := p.resourceCache.GetOrLoad(key, p.cfg.ResourceTTL, start, func() (resource.Resource, error) {
		snapshot, err := p.fetchCatalog(ctx)
		if err != nil {
			return resource.Resource{}, err
		}
		c, ok := snapshot.Components[key]
		if !ok {
			return resource.Resource{}, provider.NewNotFound(p.label, fmt.Sprintf("resource %s not found", key))
		}
		return c.ToResource(p.label), nil
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
	snapshot, err := p.fetchCatalog(ctx)
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

	results := make([]provider.SearchResult, 0, len(snapshot.Components))
	var fragments []resource.Fragment
	for _, c := range snapshot.Components {
		score := httpmeta.Score(c, req)
		if score < opts.MinScore {
			continue
		}
		results = append(results, provider.SearchResult{
			Resource:       c.ToMetadata(),
			Score:          score,
			Reasons:        httpmeta.Reasons(c, opts.Query),
			SourceProvider: p.label,
		})
		fragments = append(fragments, resource.Fragment{
			ID: c.ID, Category: c.Category, Tags: c.Tags, EstimatedTokens: c.EstimatedTokens,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	total := len(results)
	maxResults := opts.MaxResults
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	facets := resource.ComputeFacets(fragments)
	p.stats.RecordSuccess(time.Since(start), time.Now())
	return provider.SearchResponse{Results: results, Facets: facets, Total: total}, nil
}

// HealthCheck calls FetchIndex (warm cache hits are cheap); a populated
// index means healthy (or degraded under a soft success rate), repeated
// failure means unhealthy (spec §4.10).
func (p *Provider) HealthCheck(ctx context.Context) (provider.HealthRecord, error) {
	start := time.Now()
	idx, err := p.FetchIndex(ctx)
	responseTime := time.Since(start)

	status := provider.StatusUnhealthy
	reachable := err == nil
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	rate := p.stats.SuccessRate()
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
