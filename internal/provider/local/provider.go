package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobrucego/o8fed/internal/cache"
	"github.com/gobrucego/o8fed/internal/fuzzy"
	"github.com/gobrucego/o8fed/internal/keyword"
	"github.com/gobrucego/o8fed/internal/logging"
	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/gobrucego/o8fed/internal/resource"
)

const indexCacheKey = "index"

// Provider is the filesystem-backed federation backend.
type Provider struct {
	label   string
	cfg     Config
	enabled atomic.Bool

	indexCache    *cache.LRU[loadResult]
	resourceCache *cache.LRU[resource.Resource]

	stats         *provider.StatsTracker
	lastFailureAt atomic.Int64 // unix nanos, 0 if none yet

	shutdownOnce sync.Once

	log *logging.ContextLogger
}

// New constructs a Provider for the given label and configuration.
func New(label string, cfg Config) *Provider {
	cfg = cfg.withDefaults()
	p := &Provider{
		label:         label,
		cfg:           cfg,
		indexCache:    cache.New[loadResult](1),
		resourceCache: cache.New[resource.Resource](cfg.CacheSize),
		stats:         provider.NewStatsTracker(time.Now()),
		log:           logging.NewContextLogger(nil, map[string]interface{}{"component": "provider", "provider": label}),
	}
	p.enabled.Store(true)
	return p
}

func (p *Provider) Label() string    { return p.label }
func (p *Provider) Priority() int    { return p.cfg.Priority }
func (p *Provider) Enabled() bool    { return p.enabled.Load() }
func (p *Provider) SetEnabled(v bool) { p.enabled.Store(v) }

func (p *Provider) staticURI(category resource.Category, id string) string {
	return fmt.Sprintf("%s%s/%s", p.cfg.Scheme, category, id)
}

// Initialize verifies the resource root is readable (fatal if not, per
// spec §4.9), then kicks off a first index load without awaiting it.
func (p *Provider) Initialize(ctx context.Context) error {
	info, err := os.Stat(p.cfg.ResourcesPath)
	if err != nil || !info.IsDir() {
		p.log.WithError(err).Error("resource root unreadable")
		return provider.NewUnavailable(p.label, "resource root unreadable: "+p.cfg.ResourcesPath, err)
	}

	go func() {
		if _, err := p.fetchIndexResult(context.Background()); err != nil {
			p.log.WithError(err).Warn("initial index load failed")
		}
	}()
	return nil
}

// Shutdown flushes both caches. Idempotent.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.indexCache.Clear()
		p.resourceCache.Clear()
	})
	return nil
}

func (p *Provider) fetchIndexResult(ctx context.Context) (loadResult, error) {
	start := time.Now()
	result, err := p.indexCache.GetOrLoad(indexCacheKey, p.cfg.IndexCacheTTL, start, p.loadAll)
	if err != nil {
		p.stats.RecordFailure(time.Since(start))
		p.lastFailureAt.Store(time.Now().UnixNano())
		p.log.WithError(err).Warn("index load failed")
		return loadResult{}, err
	}
	p.stats.RecordSuccess(time.Since(start), time.Now())
	return result, nil
}

func (p *Provider) FetchIndex(ctx context.Context) (resource.Index, error) {
	result, err := p.fetchIndexResult(ctx)
	if err != nil {
		return resource.Index{}, err
	}
	return result.Index, nil
}

func (p *Provider) FetchResource(ctx context.Context, category resource.Category, id string) (resource.Resource, error) {
	start := time.Now()
	key := cacheKey(category, id)

	loader := func() (resource.Resource, error) {
		path := fmt.Sprintf("%s/%s/%s.md", p.cfg.ResourcesPath, canonicalDir(category), id)
		r, err := scanFile(path, category, id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return resource.Resource{}, provider.NewNotFound(p.label, fmt.Sprintf("resource %s not found", key))
			}
			return resource.Resource{}, provider.NewProviderError(p.label, "read resource file failed", 0, err)
		}
		r.SourceURI = p.staticURI(category, r.ID)
		return r, nil
	}

	r, err := p.resourceCache.GetOrLoad(key, p.cfg.CacheTTL, start, loader)
	if err != nil {
		p.stats.RecordFailure(time.Since(start))
		p.lastFailureAt.Store(time.Now().UnixNano())
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
	result, err := p.fetchIndexResult(ctx)
	if err != nil {
		return provider.SearchResponse{}, err
	}

	req := toFuzzyRequest(opts)
	matched := fuzzy.Match(result.Fragments, req)
	keywords := keyword.Extract(opts.Query)

	results := make([]provider.SearchResult, 0, len(matched.Fragments))
	for _, frag := range matched.Fragments {
		results = append(results, provider.SearchResult{
			Resource:       fragmentToMetadata(frag),
			Score:          matched.MatchScores[frag.ID],
			Reasons:        fuzzy.Reasons(frag, keywords, req),
			SourceProvider: p.label,
		})
	}

	facets := resource.ComputeFacets(matched.Fragments)

	sortResults(results, opts.SortBy, opts.SortDirection)
	total := len(results)
	results = paginate(results, opts.Offset, opts.Limit)

	p.stats.RecordSuccess(time.Since(start), time.Now())
	return provider.SearchResponse{Results: results, Facets: facets, Total: total}, nil
}

func toFuzzyRequest(opts provider.SearchOptions) fuzzy.Request {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1 << 30
	}
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = 15
	}
	return fuzzy.Request{
		Query:        opts.Query,
		Categories:   opts.Categories,
		MaxTokens:    maxTokens,
		RequiredTags: opts.RequiredTags,
		Mode:         fuzzy.ModeCatalog,
		MaxResults:   maxResults,
		MinScore:     opts.MinScore,
	}
}

func fragmentToMetadata(frag resource.Fragment) resource.Metadata {
	return resource.Metadata{
		ID:              strings.TrimPrefix(frag.ID, string(frag.Category)+"/"),
		Category:        frag.Category,
		Title:           frag.Title,
		Tags:            frag.Tags,
		Capabilities:    frag.Capabilities,
		UseWhen:         frag.UseWhen,
		EstimatedTokens: frag.EstimatedTokens,
		SourceURI:       frag.URI,
	}
}

func (p *Provider) HealthCheck(ctx context.Context) (provider.HealthRecord, error) {
	start := time.Now()
	info, err := os.Stat(p.cfg.ResourcesPath)
	reachable := err == nil && info.IsDir()
	responseTime := time.Since(start)

	rate := p.stats.SuccessRate()
	recentError := p.hasRecentError(time.Now())

	status := provider.StatusHealthy
	switch {
	case !reachable || rate < 0.5:
		status = provider.StatusUnhealthy
	case rate < 0.9 || recentError:
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
		Metrics: provider.HealthMetrics{
			SuccessRate:         rate,
			ConsecutiveFailures: p.stats.ConsecutiveFailures(),
			LastSuccess:         p.stats.LastSuccess(),
		},
	}, nil
}

func (p *Provider) hasRecentError(now time.Time) bool {
	ns := p.lastFailureAt.Load()
	if ns == 0 {
		return false
	}
	return now.Sub(time.Unix(0, ns)) < 5*time.Minute
}

func (p *Provider) GetStats() provider.StatsRecord {
	return p.stats.Snapshot(p.label, provider.RateLimitSnapshot{})
}

func (p *Provider) ResetStats() {
	p.stats.Reset(time.Now())
}

var _ provider.Provider = (*Provider)(nil)
