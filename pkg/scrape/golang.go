package scrape

import (
	"context"
	"errors"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/goproxy"
)

// GoProxyClient is the module proxy surface the scraper consumes.
type GoProxyClient interface {
	FetchModule(ctx context.Context, mod string, refresh bool) (*goproxy.ModuleInfo, error)
}

// GoScraper enriches Go module candidates. The module proxy carries almost no
// descriptive metadata, so the repository record does most of the work here.
type GoScraper struct {
	proxy GoProxyClient
	gh    RepoClient
	docs  *DocFetcher
}

// NewGo creates the Go module scraper.
func NewGo(proxy GoProxyClient, gh RepoClient, docs *DocFetcher) *GoScraper {
	return &GoScraper{proxy: proxy, gh: gh, docs: docs}
}

func (s *GoScraper) Ecosystem() model.Ecosystem { return model.EcosystemGo }

// Scrape confirms the module against the proxy, then leans on the repository.
func (s *GoScraper) Scrape(ctx context.Context, c model.Candidate, refresh bool) (*Bundle, error) {
	info, err := s.proxy.FetchModule(ctx, c.Identifier, refresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeRegistryNotFound, err, "go module %s", c.Identifier)
		}
		return nil, err
	}

	repoURL := c.RepositoryURL
	if repoURL == "" {
		// Module paths hosted on github.com double as repo coordinates.
		if owner, name, ok := registry.ParseGitHubRepo("https://" + c.Identifier); ok {
			repoURL = "https://github.com/" + owner + "/" + name
		}
	}

	b := &Bundle{
		Candidate: c,
		Registry: RegistryRecord{
			Name:          info.Path,
			Version:       info.Version,
			Dependencies:  info.Dependencies,
			RepositoryURL: repoURL,
			PublishedAt:   info.PublishedAt,
		},
		ScrapedAt: time.Now().UTC(),
	}

	b.Repo = fetchRepoRecord(ctx, s.gh, repoURL, refresh)
	if b.Repo != nil {
		b.Registry.Description = b.Repo.Description
		b.Registry.License = b.Repo.License
		b.Registry.Author = b.Repo.Owner
	}

	if s.docs != nil {
		b.Docs = s.docs.FetchDocs(ctx, []string{"https://pkg.go.dev/" + c.Identifier})
	}

	b.InstallHints, b.AuthHints = extractHints(b.CombinedText())
	return b, nil
}
