package scrape

import (
	"context"
	"errors"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/npm"
)

// NPMClient is the npm registry surface the scraper consumes.
type NPMClient interface {
	FetchPackage(ctx context.Context, pkg string, refresh bool) (*npm.PackageInfo, error)
}

// NPMScraper enriches npm candidates.
type NPMScraper struct {
	npm  NPMClient
	gh   RepoClient
	docs *DocFetcher
}

// NewNPM creates the npm scraper. gh and docs may be nil to skip those sources.
func NewNPM(client NPMClient, gh RepoClient, docs *DocFetcher) *NPMScraper {
	return &NPMScraper{npm: client, gh: gh, docs: docs}
}

func (s *NPMScraper) Ecosystem() model.Ecosystem { return model.EcosystemNPM }

// Scrape fetches registry detail, then repository metadata and docs.
// Only the registry fetch is fatal.
func (s *NPMScraper) Scrape(ctx context.Context, c model.Candidate, refresh bool) (*Bundle, error) {
	info, err := s.npm.FetchPackage(ctx, c.Identifier, refresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeRegistryNotFound, err, "npm package %s", c.Identifier)
		}
		return nil, err
	}

	b := &Bundle{
		Candidate: c,
		Registry: RegistryRecord{
			Name:          info.Name,
			Version:       info.Version,
			Description:   info.Description,
			License:       info.License,
			Author:        info.Author,
			Keywords:      info.Keywords,
			Dependencies:  info.Dependencies,
			RepositoryURL: info.Repository,
			HomepageURL:   info.HomePage,
			PublishedAt:   info.PublishedAt,
		},
		ScrapedAt: time.Now().UTC(),
	}

	repoURL := b.Registry.RepositoryURL
	if repoURL == "" {
		repoURL = c.RepositoryURL
	}
	b.Repo = fetchRepoRecord(ctx, s.gh, repoURL, refresh)

	if s.docs != nil {
		b.Docs = s.docs.FetchDocs(ctx, docURLs(b.Registry.HomepageURL, repoURL))
	}

	b.InstallHints, b.AuthHints = extractHints(b.CombinedText())
	return b, nil
}

// docURLs lists candidate documentation URLs in fetch order, skipping the
// repository itself (its README is already fetched via the repo host API).
func docURLs(urls ...string) []string {
	var out []string
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, _, ok := registry.ParseGitHubRepo(u); ok {
			continue
		}
		out = append(out, u)
	}
	return out
}
