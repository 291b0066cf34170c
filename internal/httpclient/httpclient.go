// Package httpclient implements the shared outbound-request discipline
// both HTTP-backed providers follow (spec §4.10 "HTTP client behavior"):
// rate-limit admission, a deadline per request, conditional If-None-Match
// requests, response classification into the provider error taxonomy, and
// exponential-backoff retry with jitter on transient failures. Grounded on
// evalgo-org-eve/network/http_client.go and network/downloader.go's
// custom-client-plus-User-Agent style, generalized from a one-shot
// downloader into a reusable retrying client.
package httpclient

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gobrucego/o8fed/internal/provider"
	"github.com/gobrucego/o8fed/internal/ratelimit"
)

const userAgent = "o8fed/1 (+federation resource discovery)"

// Config configures a Client.
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	BackoffBase   time.Duration
}

// DefaultConfig mirrors spec §4.10's named defaults.
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, RetryAttempts: 3, BackoffBase: 500 * time.Millisecond}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = d.BackoffBase
	}
	return c
}

// Client wraps an *http.Client with the provider's rate limiter and retry
// policy. One Client belongs to exactly one provider.
type Client struct {
	provider string
	cfg      Config
	limiter  *ratelimit.Limiter
	http     *http.Client
}

// New builds a Client for providerLabel, admitting every request through
// limiter first (spec §4.10 step 1).
func New(providerLabel string, cfg Config, limiter *ratelimit.Limiter) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		provider: providerLabel,
		cfg:      cfg,
		limiter:  limiter,
		http:     &http.Client{},
	}
}

// Result is a successful response's decoded body plus the caching metadata
// the caller needs to persist (ETag, not-modified flag).
type Result struct {
	Body         []byte
	ETag         string
	NotModified  bool
	BytesLength  int64
}

// Get performs a rate-limited, retrying, deadline-bound GET against url.
// etag, if non-empty, is sent as If-None-Match (spec §4.10 step 2); a 304
// response is surfaced as Result.NotModified rather than an error so the
// caller can reuse its existing cache entry.
func (c *Client) Get(ctx context.Context, url, etag string) (Result, error) {
	if c.limiter != nil {
		res := c.limiter.Admit(time.Now())
		if !res.Allowed {
			return Result{}, provider.NewRateLimit(c.provider, "rate limit bucket exhausted", res.RetryAfterMs)
		}
	}

	attempts := c.cfg.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoffDelay(c.cfg.BackoffBase, attempt))
		}

		result, err := c.doOnce(ctx, url, etag)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if pe, ok := err.(*provider.Error); ok {
			switch pe.Kind {
			case provider.KindNotFound, provider.KindRateLimit, provider.KindAuthFailed:
				return Result{}, err // never retried, spec §4.10 step 6
			}
		}
	}
	return Result{}, lastErr
}

func (c *Client) doOnce(ctx context.Context, url, etag string) (Result, error) {
	deadline, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(deadline, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, provider.NewProviderError(c.provider, "build request failed", 0, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if deadline.Err() == context.DeadlineExceeded {
			return Result{}, provider.NewTimeout(c.provider, "request deadline exceeded", err)
		}
		return Result{}, provider.NewProviderError(c.provider, "request failed", 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Result{NotModified: true, ETag: etag}, nil
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return Result{}, provider.NewProviderError(c.provider, "read response body failed", resp.StatusCode, readErr)
		}
		return Result{Body: body, ETag: resp.Header.Get("ETag"), BytesLength: int64(len(body))}, nil
	case resp.StatusCode == http.StatusNotFound:
		return Result{}, provider.NewNotFound(c.provider, "resource not found at "+url)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, provider.NewRateLimit(c.provider, "server rate limited the request", retryAfterMs(resp))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, provider.NewAuthFailed(c.provider, "authentication failed", resp.StatusCode)
	default:
		return Result{}, provider.NewProviderError(c.provider, "unexpected response status", resp.StatusCode, nil)
	}
}

// retryAfterMs honors a server Retry-After header (seconds), per spec
// §4.10 step 4.
func retryAfterMs(resp *http.Response) int64 {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return int64(secs) * 1000
}

const maxBackoff = 60 * time.Second

// backoffDelay computes base*2^(attempt-1) (so the first retry waits base)
// with 0-30% jitter, capped at 60s (spec §4.10 step 6).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt-1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d) * 30 / 100))
	d += jitter
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
