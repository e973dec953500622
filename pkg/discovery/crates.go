package discovery

import (
	"context"
	"fmt"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry/crates"
)

// CratesSearcher is the slice of the crates.io client that discovery consumes.
// crates.io is the one registry with a real reverse-dependency API, so the
// dependency method here is exact rather than text-search-approximated.
type CratesSearcher interface {
	Search(ctx context.Context, text string, size int, refresh bool) ([]crates.SearchHit, error)
	ReverseDependencies(ctx context.Context, crate string, size int, refresh bool) ([]string, error)
}

// CratesDiscoverer finds Rust candidates by keyword search, reverse
// dependencies of the known SDK crates, and naming-pattern search.
type CratesDiscoverer struct {
	client CratesSearcher
	seeds  Seeds
	size   int
}

// NewCrates creates the crates.io discoverer.
func NewCrates(client CratesSearcher, seeds Seeds, size int) *CratesDiscoverer {
	if size <= 0 {
		size = 50
	}
	return &CratesDiscoverer{client: client, seeds: seeds, size: size}
}

func (d *CratesDiscoverer) Ecosystem() model.Ecosystem { return model.EcosystemCargo }

// Discover runs all crates.io discovery methods and returns the deduplicated union.
func (d *CratesDiscoverer) Discover(ctx context.Context, refresh bool) ([]model.Candidate, error) {
	var (
		out      []model.Candidate
		lastErr  error
		anyOK    bool
		seenTime = now()
	)

	searches := append([]string{}, d.seeds.Keywords...)
	searches = append(searches, d.seeds.Patterns...)
	for _, text := range searches {
		hits, err := d.client.Search(ctx, text, d.size, refresh)
		if err != nil {
			lastErr = fmt.Errorf("crates search %q: %w", text, err)
			if ctx.Err() != nil {
				return dedup(out), ctx.Err()
			}
			continue
		}
		anyOK = true
		for _, h := range hits {
			out = append(out, model.Candidate{
				Ecosystem:       model.EcosystemCargo,
				Identifier:      h.Name,
				Description:     h.Description,
				RepositoryURL:   h.Repository,
				DiscoveryMethod: "keyword:" + text,
				DiscoveredAt:    seenTime,
			})
		}
	}

	for _, sdk := range d.seeds.SDKs[model.EcosystemCargo] {
		names, err := d.client.ReverseDependencies(ctx, sdk, d.size, refresh)
		if err != nil {
			lastErr = fmt.Errorf("crates revdeps %q: %w", sdk, err)
			if ctx.Err() != nil {
				return dedup(out), ctx.Err()
			}
			continue
		}
		anyOK = true
		for _, name := range names {
			out = append(out, model.Candidate{
				Ecosystem:       model.EcosystemCargo,
				Identifier:      name,
				DiscoveryMethod: "dependency:" + sdk,
				DiscoveredAt:    seenTime,
			})
		}
	}

	if !anyOK {
		return nil, lastErr
	}
	return dedup(out), nil
}
