package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry/github"
)

// RepoSearcher is the GitHub search surface the Go discoverer uses.
type RepoSearcher interface {
	SearchRepos(ctx context.Context, query string, size int, refresh bool) ([]github.SearchHit, error)
}

// ModuleChecker confirms synthesized module paths against the module proxy.
type ModuleChecker interface {
	Exists(ctx context.Context, mod string) bool
}

// GoDiscoverer finds Go candidates. The module index has no search surface,
// so it searches GitHub for Go repositories with MCP topics, synthesizes
// module paths from repository coordinates, and keeps only paths the module
// proxy confirms.
type GoDiscoverer struct {
	gh    RepoSearcher
	proxy ModuleChecker
	seeds Seeds
	size  int
}

// NewGo creates the Go discoverer.
func NewGo(gh RepoSearcher, proxy ModuleChecker, seeds Seeds, size int) *GoDiscoverer {
	if size <= 0 {
		size = 50
	}
	return &GoDiscoverer{gh: gh, proxy: proxy, seeds: seeds, size: size}
}

func (d *GoDiscoverer) Ecosystem() model.Ecosystem { return model.EcosystemGo }

// Discover searches GitHub per topic and confirms candidates via the proxy.
func (d *GoDiscoverer) Discover(ctx context.Context, refresh bool) ([]model.Candidate, error) {
	var (
		out      []model.Candidate
		lastErr  error
		anyOK    bool
		seenTime = now()
	)
	for _, topic := range d.seeds.Topics {
		query := fmt.Sprintf("topic:%s language:go", topic)
		hits, err := d.gh.SearchRepos(ctx, query, d.size, refresh)
		if err != nil {
			lastErr = fmt.Errorf("github search %q: %w", query, err)
			if ctx.Err() != nil {
				return dedup(out), ctx.Err()
			}
			continue
		}
		anyOK = true
		for _, h := range hits {
			if h.Archived || !strings.Contains(h.FullName, "/") {
				continue
			}
			modPath := "github.com/" + h.FullName
			if !d.proxy.Exists(ctx, modPath) {
				continue
			}
			out = append(out, model.Candidate{
				Ecosystem:       model.EcosystemGo,
				Identifier:      modPath,
				Description:     h.Description,
				RepositoryURL:   "https://github.com/" + h.FullName,
				DiscoveryMethod: "topic:" + topic,
				DiscoveredAt:    seenTime,
			})
		}
	}
	if !anyOK {
		return nil, lastErr
	}
	return dedup(out), nil
}
