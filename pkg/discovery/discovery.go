// Package discovery finds candidate MCP server packages across the supported
// ecosystems. Each ecosystem has one Discoverer that combines several
// discovery methods (keyword search, dependency search, naming patterns,
// topic search); results are unioned and deduplicated by candidate identity.
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// Discoverer produces candidate packages for one ecosystem.
//
// Duplicates across discovery methods within one ecosystem are expected;
// Discover collapses them by identity and keeps the first provenance seen.
// A discoverer should return partial results when some of its methods fail;
// it returns an error only when every method failed.
type Discoverer interface {
	Ecosystem() model.Ecosystem
	Discover(ctx context.Context, refresh bool) ([]model.Candidate, error)
}

// Seeds is the data-driven part of discovery: the search terms, identifier
// patterns, repository topics, and SDK identifiers each ecosystem probes.
type Seeds struct {
	Keywords []string                     // registry search terms
	Patterns []string                     // identifier shapes, e.g. "mcp-"
	Topics   []string                     // GitHub topics for the Go fallback
	SDKs     map[model.Ecosystem][]string // known MCP SDK identifiers
}

// DefaultSeeds returns the seed lists used when configuration is silent.
func DefaultSeeds() Seeds {
	return Seeds{
		Keywords: []string{"mcp-server", "model-context-protocol", "anthropic mcp", "claude mcp"},
		Patterns: []string{"mcp-", "-mcp"},
		Topics:   []string{"mcp-server", "model-context-protocol"},
		SDKs: map[model.Ecosystem][]string{
			model.EcosystemNPM:   {"@modelcontextprotocol/sdk"},
			model.EcosystemPyPI:  {"mcp", "fastmcp"},
			model.EcosystemCargo: {"rmcp", "mcp-sdk"},
			model.EcosystemGo:    {"github.com/modelcontextprotocol/go-sdk", "github.com/mark3labs/mcp-go"},
		},
	}
}

// Union runs all discoverers concurrently and merges their candidates,
// deduplicating by (ecosystem, identifier). The first occurrence of a
// candidate wins, so its provenance reflects the method that found it first.
//
// A failing discoverer does not abort the others; Union returns whatever was
// found plus the first error encountered, which callers may treat as partial.
func Union(ctx context.Context, discoverers []Discoverer, refresh bool) ([]model.Candidate, error) {
	var (
		mu       sync.Mutex
		seen     = make(map[string]bool)
		out      []model.Candidate
		firstErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range discoverers {
		g.Go(func() error {
			candidates, err := d.Discover(ctx, refresh)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			for _, c := range candidates {
				if key := c.Key(); !seen[key] {
					seen[key] = true
					out = append(out, c)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	// Stable output order keeps runs comparable in logs and tests.
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, firstErr
}

// dedup collapses candidates by identity, keeping first occurrence.
func dedup(candidates []model.Candidate) []model.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if key := c.Key(); !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

func now() time.Time { return time.Now().UTC() }
