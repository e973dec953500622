package discovery

import (
	"context"
	"fmt"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry/npm"
)

// NPMSearcher is the slice of the npm client that discovery consumes.
type NPMSearcher interface {
	Search(ctx context.Context, text string, size int, refresh bool) ([]npm.SearchHit, error)
}

// NPMDiscoverer finds npm candidates by keyword search, dependency search,
// and naming-pattern search.
type NPMDiscoverer struct {
	client NPMSearcher
	seeds  Seeds
	size   int
}

// NewNPM creates the npm discoverer. size caps hits per search query.
func NewNPM(client NPMSearcher, seeds Seeds, size int) *NPMDiscoverer {
	if size <= 0 {
		size = 50
	}
	return &NPMDiscoverer{client: client, seeds: seeds, size: size}
}

func (d *NPMDiscoverer) Ecosystem() model.Ecosystem { return model.EcosystemNPM }

// Discover runs all npm discovery methods and returns the deduplicated union.
func (d *NPMDiscoverer) Discover(ctx context.Context, refresh bool) ([]model.Candidate, error) {
	type query struct {
		text       string
		provenance string
	}
	var queries []query
	for _, kw := range d.seeds.Keywords {
		queries = append(queries, query{kw, "keyword:" + kw})
	}
	// npm has no dependents API; a text search for the SDK identifier
	// surfaces packages that name it. The registry record confirms the
	// actual dependency later.
	for _, sdk := range d.seeds.SDKs[model.EcosystemNPM] {
		queries = append(queries, query{sdk, "dependency:" + sdk})
	}
	for _, p := range d.seeds.Patterns {
		queries = append(queries, query{p, "pattern:" + p})
	}

	var (
		out      []model.Candidate
		lastErr  error
		anyOK    bool
		seenTime = now()
	)
	for _, q := range queries {
		hits, err := d.client.Search(ctx, q.text, d.size, refresh)
		if err != nil {
			lastErr = fmt.Errorf("npm search %q: %w", q.text, err)
			if ctx.Err() != nil {
				return dedup(out), ctx.Err()
			}
			continue
		}
		anyOK = true
		for _, h := range hits {
			out = append(out, model.Candidate{
				Ecosystem:       model.EcosystemNPM,
				Identifier:      h.Name,
				Description:     h.Description,
				RepositoryURL:   h.Repository,
				DiscoveryMethod: q.provenance,
				DiscoveredAt:    seenTime,
			})
		}
	}
	if !anyOK {
		return nil, lastErr
	}
	return dedup(out), nil
}
