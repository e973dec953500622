package cache

import (
	"context"
	"time"
)

// NullCache is the no-op backend: every Get misses and every Set is
// discarded, so registry clients hit the network on each call. It is
// selected by `cache_backend = "none"` and wired by tests that must not
// share state between cases.
type NullCache struct{}

// NewNullCache creates the no-op backend.
func NewNullCache() Cache {
	return NullCache{}
}

// Get always misses.
func (NullCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the data.
func (NullCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Delete does nothing.
func (NullCache) Delete(context.Context, string) error {
	return nil
}

// Close does nothing.
func (NullCache) Close() error {
	return nil
}

var _ Cache = NullCache{}
