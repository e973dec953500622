// Package registry provides shared HTTP functionality for all registry and
// repository host clients.
//
// Each ecosystem client (npm, pypi, crates, goproxy, github) embeds
// [Client], which routes requests through the crawler's rate-limited
// [httputil.Fetcher] and caches JSON responses in a namespaced [cache.Cache].
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/observability"
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Client provides shared HTTP functionality for all registry API clients.
// It handles caching, rate limiting via the fetcher, and common request headers.
type Client struct {
	fetcher  *httputil.Fetcher
	cache    cache.Cache
	ttl      time.Duration
	headers  map[string]string
	category httputil.HostCategory
}

// NewClient creates a Client whose requests carry the given default headers
// and whose cached responses live under the given namespace.
// Pass nil for headers if no default headers are needed.
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, namespace string, ttl time.Duration, category httputil.HostCategory, headers map[string]string) *Client {
	return &Client{
		fetcher:  fetcher,
		cache:    cache.NewScoped(backend, namespace),
		ttl:      ttl,
		headers:  headers,
		category: category,
	}
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if !refresh {
		if data, hit, _ := c.cache.Get(ctx, key); hit {
			observability.Cache().OnCacheHit(ctx, "http")
			return json.Unmarshal(data, v)
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, "http", len(data))
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// GetText performs an HTTP GET request and returns the response body as a string.
// Useful for non-JSON endpoints like go.mod files, READMEs, or HTML pages.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	return c.GetTextWithHeaders(ctx, url, nil)
}

// GetTextWithHeaders is GetText with additional per-request headers merged
// with client defaults.
func (c *Client) GetTextWithHeaders(ctx context.Context, url string, headers map[string]string) (string, error) {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	header := make(http.Header, len(c.headers)+len(headers))
	for k, v := range c.headers {
		header.Set(k, v)
	}
	for k, v := range headers {
		header.Set(k, v)
	}

	resp, err := c.fetcher.Fetch(ctx, httputil.Request{
		URL:      rawURL,
		Header:   header,
		Category: c.category,
	})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) {
			if se.Code == http.StatusNotFound || se.Code == http.StatusGone {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
			}
			return nil, fmt.Errorf("%w: status %d from %s", ErrNetwork, se.Code, rawURL)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp.Body, nil
}

// NormalizePkgName converts a package name to its canonical form.
// Applies lowercase and replaces underscores with hyphens, following PEP 503
// normalization rules used by PyPI and other registries.
func NormalizePkgName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"git@gitlab.com:", "https://gitlab.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, and git+ prefixes, and removes .git suffixes and
// trailing slashes. Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	s = strings.TrimSuffix(s, ".git")
	return strings.TrimSuffix(s, "/")
}

var githubRepoRE = regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:[/?#]|$)`)

// ParseGitHubRepo extracts (owner, repo) from a GitHub URL.
// Returns ok=false for non-GitHub URLs and sponsor links.
func ParseGitHubRepo(rawURL string) (owner, repo string, ok bool) {
	if rawURL == "" || strings.Contains(rawURL, "/sponsors/") {
		return "", "", false
	}
	if m := githubRepoRE.FindStringSubmatch(rawURL); len(m) >= 3 {
		return m[1], strings.TrimSuffix(m[2], ".git"), true
	}
	return "", "", false
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }
