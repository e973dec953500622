package discovery

import (
	"context"
	"fmt"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry/pypi"
)

// PyPISearcher is the slice of the PyPI client that discovery consumes.
type PyPISearcher interface {
	Search(ctx context.Context, query, classifier string, size int, refresh bool) ([]pypi.SearchHit, error)
}

// PyPIDiscoverer finds PyPI candidates by scraping the search page for seed
// keywords, SDK mentions, and naming patterns. PyPI retired its search API,
// so every method goes through the HTML surface.
type PyPIDiscoverer struct {
	client     PyPISearcher
	seeds      Seeds
	classifier string // optional PyPI classifier narrowing every query
	size       int
}

// NewPyPI creates the PyPI discoverer. classifier may be empty.
func NewPyPI(client PyPISearcher, seeds Seeds, classifier string, size int) *PyPIDiscoverer {
	if size <= 0 {
		size = 50
	}
	return &PyPIDiscoverer{client: client, seeds: seeds, classifier: classifier, size: size}
}

func (d *PyPIDiscoverer) Ecosystem() model.Ecosystem { return model.EcosystemPyPI }

// Discover runs all PyPI discovery methods and returns the deduplicated union.
func (d *PyPIDiscoverer) Discover(ctx context.Context, refresh bool) ([]model.Candidate, error) {
	type query struct {
		text       string
		provenance string
	}
	var queries []query
	for _, kw := range d.seeds.Keywords {
		queries = append(queries, query{kw, "keyword:" + kw})
	}
	for _, sdk := range d.seeds.SDKs[model.EcosystemPyPI] {
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
		hits, err := d.client.Search(ctx, q.text, d.classifier, d.size, refresh)
		if err != nil {
			lastErr = fmt.Errorf("pypi search %q: %w", q.text, err)
			if ctx.Err() != nil {
				return dedup(out), ctx.Err()
			}
			continue
		}
		anyOK = true
		for _, h := range hits {
			out = append(out, model.Candidate{
				Ecosystem:       model.EcosystemPyPI,
				Identifier:      h.Name,
				Description:     h.Description,
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
