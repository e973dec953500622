package scrape

import (
	"context"
	"errors"
	"time"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/crates"
)

// CratesClient is the crates.io surface the scraper consumes.
type CratesClient interface {
	FetchCrate(ctx context.Context, crate string, refresh bool) (*crates.CrateInfo, error)
}

// CratesScraper enriches crates.io candidates.
type CratesScraper struct {
	crates CratesClient
	gh     RepoClient
	docs   *DocFetcher
}

// NewCrates creates the crates.io scraper.
func NewCrates(client CratesClient, gh RepoClient, docs *DocFetcher) *CratesScraper {
	return &CratesScraper{crates: client, gh: gh, docs: docs}
}

func (s *CratesScraper) Ecosystem() model.Ecosystem { return model.EcosystemCargo }

// Scrape fetches crate detail, then repository metadata and docs.rs.
func (s *CratesScraper) Scrape(ctx context.Context, c model.Candidate, refresh bool) (*Bundle, error) {
	info, err := s.crates.FetchCrate(ctx, c.Identifier, refresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, crawlerrors.Wrap(crawlerrors.ErrCodeRegistryNotFound, err, "crate %s", c.Identifier)
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
			Keywords:      info.Keywords,
			Classifiers:   info.Categories,
			Dependencies:  info.Dependencies,
			RepositoryURL: info.Repository,
			HomepageURL:   info.HomePage,
			PublishedAt:   info.UpdatedAt,
		},
		ScrapedAt: time.Now().UTC(),
	}

	repoURL := b.Registry.RepositoryURL
	if repoURL == "" {
		repoURL = c.RepositoryURL
	}
	b.Repo = fetchRepoRecord(ctx, s.gh, repoURL, refresh)

	if s.docs != nil {
		urls := []string{"https://docs.rs/" + info.Name, b.Registry.HomepageURL}
		b.Docs = s.docs.FetchDocs(ctx, docURLs(urls...))
	}

	b.InstallHints, b.AuthHints = extractHints(b.CombinedText())
	return b, nil
}
