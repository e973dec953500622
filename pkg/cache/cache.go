// Package cache provides pluggable byte-level caching for HTTP responses.
//
// Registry clients cache API responses to stay well under public registry
// rate limits across crawl runs. Three backends are provided:
//
//   - FileCache: per-machine cache directory (CLI default)
//   - RedisCache: shared cache for multi-instance deployments
//   - NullCache: no-op backend for tests and --refresh runs
//
// Use [Scoped] to namespace keys per data source (e.g., "npm:", "pypi:") so
// different registries never collide in a shared backend.
package cache

import (
	"context"
	"time"
)

// Cache is the backend interface for byte-level caching with TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Scoped wraps a Cache, prefixing every key with a namespace.
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a namespaced view of inner. Namespaces can be nested:
//
//	NewScoped(NewScoped(c, "registry:"), "npm:")  // keys become "registry:npm:..."
func NewScoped(inner Cache, prefix string) *Scoped {
	return &Scoped{inner: inner, prefix: prefix}
}

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close is a no-op; the underlying backend owns its resources.
func (s *Scoped) Close() error { return nil }

var _ Cache = (*Scoped)(nil)
