// Package scrape enriches discovery candidates with registry detail,
// repository metadata, and documentation text. One scraper per ecosystem.
//
// The failure policy is deliberately loose: any single fetch may fail and the
// scraper still returns a partial bundle. Only a missing registry record is
// fatal, because without it there is nothing to analyze.
package scrape

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/github"
)

// RegistryRecord is the raw metadata from the ecosystem registry, reduced to
// the fields the analyzer consumes.
type RegistryRecord struct {
	Name          string
	Version       string
	Description   string
	License       string
	Author        string
	Keywords      []string
	Classifiers   []string
	Dependencies  []string
	RepositoryURL string
	HomepageURL   string
	PublishedAt   time.Time
}

// RepoRecord is the raw metadata from the source repository host.
type RepoRecord struct {
	URL           string
	Owner         string
	Name          string
	Description   string
	DefaultBranch string
	Stars         int
	Forks         int
	Topics        []string
	Archived      bool
	License       string
	Readme        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DocPage is one scraped documentation page.
type DocPage struct {
	URL       string
	Title     string
	Text      string
	WordCount int
	Links     []string
}

// Bundle is everything scraping learned about one candidate.
// Repo and Docs may be absent; Registry never is.
type Bundle struct {
	Candidate    model.Candidate
	Registry     RegistryRecord
	Repo         *RepoRecord
	Docs         []DocPage
	InstallHints []string // raw fenced shell blocks, parsed by the analyzer
	AuthHints    []string // lines mentioning credential-looking tokens
	ScrapedAt    time.Time
}

// CombinedText concatenates every free-text source in the bundle, in
// descending specificity: registry description, README, then doc pages.
func (b *Bundle) CombinedText() string {
	var parts []string
	if b.Registry.Description != "" {
		parts = append(parts, b.Registry.Description)
	}
	if b.Repo != nil && b.Repo.Readme != "" {
		parts = append(parts, b.Repo.Readme)
	}
	for _, d := range b.Docs {
		parts = append(parts, d.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Scraper enriches one ecosystem's candidates.
type Scraper interface {
	Ecosystem() model.Ecosystem
	Scrape(ctx context.Context, c model.Candidate, refresh bool) (*Bundle, error)
}

// RepoClient is the repository-host surface shared by all scrapers.
type RepoClient interface {
	FetchRepo(ctx context.Context, owner, repo string, refresh bool) (*github.RepoInfo, error)
	FetchReadme(ctx context.Context, owner, repo string, refresh bool) (string, error)
}

// fetchRepoRecord resolves repoURL to a RepoRecord, or nil when the URL is
// absent, not a GitHub repository, or the fetch fails. Never fatal.
func fetchRepoRecord(ctx context.Context, gh RepoClient, repoURL string, refresh bool) *RepoRecord {
	if gh == nil {
		return nil
	}
	owner, name, ok := registry.ParseGitHubRepo(repoURL)
	if !ok {
		return nil
	}
	info, err := gh.FetchRepo(ctx, owner, name, refresh)
	if err != nil {
		return nil
	}
	rec := &RepoRecord{
		URL:           "https://github.com/" + info.FullName,
		Owner:         info.Owner,
		Name:          info.Name,
		Description:   info.Description,
		DefaultBranch: info.DefaultBranch,
		Stars:         info.Stars,
		Forks:         info.Forks,
		Topics:        info.Topics,
		Archived:      info.Archived,
		License:       info.License,
		CreatedAt:     info.CreatedAt,
		UpdatedAt:     info.UpdatedAt,
	}
	if readme, err := gh.FetchReadme(ctx, owner, name, refresh); err == nil {
		rec.Readme = readme
	}
	return rec
}

var authTokenRE = regexp.MustCompile(`(?i)api[ _-]?key|oauth|bearer|token|credential|password|[A-Z][A-Z0-9_]{2,}_(?:KEY|TOKEN|SECRET|ID|URL)`)

var shellHints = map[string]bool{
	"": true, "sh": true, "shell": true, "bash": true, "zsh": true, "console": true,
}

// ShellBlocks returns the contents of fenced code blocks whose language hint
// is shell-like (or absent), in document order. Blocks with other hints
// (json, python, ...) are skipped whole, so their fences never mispair.
func ShellBlocks(text string) []string {
	var (
		blocks  []string
		current []string
		inside  bool
		isShell bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inside {
				if isShell && len(current) > 0 {
					blocks = append(blocks, strings.Join(current, "\n"))
				}
				inside = false
				current = nil
				continue
			}
			inside = true
			lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
			isShell = shellHints[lang]
			continue
		}
		if inside && isShell {
			current = append(current, line)
		}
	}
	return blocks
}

// extractHints pulls raw install blocks and auth-flavored lines out of
// markdown text. Parsing and normalization happen later in the analyzer.
func extractHints(text string) (install, auth []string) {
	for _, block := range ShellBlocks(text) {
		if block = strings.TrimSpace(block); block != "" {
			install = append(install, block)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if authTokenRE.MatchString(line) {
			auth = append(auth, strings.TrimSpace(line))
		}
	}
	return install, auth
}
