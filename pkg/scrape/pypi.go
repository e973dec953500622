package scrape

import (
	"context"
	"errors"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/pypi"
)

// PyPIClient is the PyPI registry surface the scraper consumes.
type PyPIClient interface {
	FetchPackage(ctx context.Context, pkg string, refresh bool) (*pypi.PackageInfo, error)
}

// PyPIScraper enriches PyPI candidates.
type PyPIScraper struct {
	pypi PyPIClient
	gh   RepoClient
	docs *DocFetcher
}

// NewPyPI creates the PyPI scraper.
func NewPyPI(client PyPIClient, gh RepoClient, docs *DocFetcher) *PyPIScraper {
	return &PyPIScraper{pypi: client, gh: gh, docs: docs}
}

func (s *PyPIScraper) Ecosystem() model.Ecosystem { return model.EcosystemPyPI }

// Scrape fetches registry detail, then repository metadata and docs.
func (s *PyPIScraper) Scrape(ctx context.Context, c model.Candidate, refresh bool) (*Bundle, error) {
	info, err := s.pypi.FetchPackage(ctx, c.Identifier, refresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeRegistryNotFound, err, "pypi package %s", c.Identifier)
		}
		return nil, err
	}

	b := &Bundle{
		Candidate: c,
		Registry: RegistryRecord{
			Name:          info.Name,
			Version:       info.Version,
			Description:   info.Summary,
			License:       info.License,
			Author:        info.Author,
			Keywords:      info.Keywords,
			Classifiers:   info.Classifiers,
			Dependencies:  info.Dependencies,
			RepositoryURL: projectRepoURL(info.ProjectURLs),
			HomepageURL:   info.HomePage,
		},
		ScrapedAt: time.Now().UTC(),
	}
	if b.Registry.HomepageURL == "" {
		b.Registry.HomepageURL = info.ProjectURLs["Homepage"]
	}

	repoURL := b.Registry.RepositoryURL
	if repoURL == "" {
		repoURL = c.RepositoryURL
	}
	b.Repo = fetchRepoRecord(ctx, s.gh, repoURL, refresh)

	if s.docs != nil {
		urls := []string{info.ProjectURLs["Documentation"], b.Registry.HomepageURL}
		b.Docs = s.docs.FetchDocs(ctx, docURLs(urls...))
	}

	b.InstallHints, b.AuthHints = extractHints(b.CombinedText())
	return b, nil
}

// projectRepoURL picks the repository link out of PyPI's free-form
// project_urls map.
func projectRepoURL(urls map[string]string) string {
	for _, key := range []string{"Repository", "Source", "Source Code", "Code", "GitHub"} {
		if u, ok := urls[key]; ok && u != "" {
			return registry.NormalizeRepoURL(u)
		}
	}
	for _, u := range urls {
		if _, _, ok := registry.ParseGitHubRepo(u); ok {
			return registry.NormalizeRepoURL(u)
		}
	}
	return ""
}
