package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcpscout/mcpcrawl/pkg/observability"
)

// HostCategory groups hosts by the kind of service they provide, so rate
// limits can be tuned per category instead of per individual host.
type HostCategory string

const (
	CategoryRegistry HostCategory = "registry" // package registry APIs
	CategoryRepoAPI  HostCategory = "repo_api" // repository host APIs (GitHub)
	CategoryDocSite  HostCategory = "doc_site" // documentation and homepage fetches
	CategoryGeneric  HostCategory = "generic"  // anything else
)

// RateLimits configures requests-per-second per host category.
// Zero values fall back to the conservative defaults.
type RateLimits struct {
	RegistryQPS float64
	RepoAPIQPS  float64
	DocSiteQPS  float64
	GenericQPS  float64
}

// DefaultRateLimits returns conservative defaults suitable for public
// registries without any special arrangement.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		RegistryQPS: 2,
		RepoAPIQPS:  1,
		DocSiteQPS:  1,
		GenericQPS:  1,
	}
}

func (r RateLimits) qps(c HostCategory) float64 {
	d := DefaultRateLimits()
	switch c {
	case CategoryRegistry:
		if r.RegistryQPS > 0 {
			return r.RegistryQPS
		}
		return d.RegistryQPS
	case CategoryRepoAPI:
		if r.RepoAPIQPS > 0 {
			return r.RepoAPIQPS
		}
		return d.RepoAPIQPS
	case CategoryDocSite:
		if r.DocSiteQPS > 0 {
			return r.DocSiteQPS
		}
		return d.DocSiteQPS
	default:
		if r.GenericQPS > 0 {
			return r.GenericQPS
		}
		return d.GenericQPS
	}
}

// Limiter maintains one token bucket per host. Buckets are created lazily
// with the QPS configured for the host's category. A burst of 1 keeps the
// observable request rate within QPS+1 in any one-second window.
type Limiter struct {
	mu      sync.Mutex
	limits  RateLimits
	buckets map[string]*rate.Limiter
}

// NewLimiter creates a process-wide host limiter with the given limits.
func NewLimiter(limits RateLimits) *Limiter {
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's bucket grants a token or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, category HostCategory, host string) error {
	bucket := l.bucket(category, host)

	start := time.Now()
	if err := bucket.Wait(ctx); err != nil {
		return err
	}
	if wait := time.Since(start); wait > time.Millisecond {
		observability.HTTP().OnRateLimitWait(ctx, host, wait)
	}
	return nil
}

// Allow reports whether a token is immediately available, consuming it if so.
// Callers that refuse to wait use this to fail fast with ErrRateLimitExceeded.
func (l *Limiter) Allow(category HostCategory, host string) bool {
	return l.bucket(category, host).Allow()
}

func (l *Limiter) bucket(category HostCategory, host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := string(category) + ":" + host
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.limits.qps(category)), 1)
		l.buckets[key] = b
	}
	return b
}
