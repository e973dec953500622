// Package analyze turns a scraped bundle into structured metadata: tools,
// auth requirements, category, tags, use cases, installation methods, slug,
// and descriptions.
//
// The analyzer is a fixed pipeline of pure extractor functions with explicit
// ordering. Optional LLM enrichment is a post-processor behind the Enricher
// interface; the deterministic pipeline always produces a complete record on
// its own.
package analyze

import (
	"context"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

// Analysis is the analyzer's output for one candidate.
type Analysis struct {
	Slug             string
	Name             string
	DisplayName      string
	ShortDescription string
	LongDescription  string
	Tools            []model.Tool
	Auth             model.AuthRequirement
	Category         model.Category
	Tags             []string
	UseCases         []string
	InstallMethods   []model.InstallMethod
	ConnectionType   model.ConnectionType
	Author           string
	Company          string
	License          string
	RepositoryURL    string
	DocumentationURL string
	HomepageURL      string
	Official         bool
}

// PrimaryInstall returns the highest-priority installation method.
func (a *Analysis) PrimaryInstall() model.InstallMethod {
	if len(a.InstallMethods) == 0 {
		return model.InstallMethod{}
	}
	best := a.InstallMethods[0]
	for _, m := range a.InstallMethods[1:] {
		if m.Priority < best.Priority {
			best = m
		}
	}
	return best
}

// Enricher optionally improves descriptions and tags after the deterministic
// pipeline ran. Implementations must treat the analysis as already complete;
// the analyzer discards enrichment that would empty a field.
type Enricher interface {
	Enrich(ctx context.Context, a *Analysis, b *scrape.Bundle) error
}

// Config tunes the analyzer's data tables. Zero values select defaults.
type Config struct {
	// CategoryAliases maps free-form labels to canonical categories,
	// e.g. "llmops" -> "ai-tools".
	CategoryAliases map[string]model.Category

	// OfficialOwners are repository owners / npm scopes whose packages get
	// the short official slug form.
	OfficialOwners []string
}

// Analyzer runs the extraction pipeline.
type Analyzer struct {
	cfg      Config
	enricher Enricher
}

// New creates an Analyzer. enricher may be nil.
func New(cfg Config, enricher Enricher) *Analyzer {
	if len(cfg.OfficialOwners) == 0 {
		cfg.OfficialOwners = defaultOfficialOwners
	}
	return &Analyzer{cfg: cfg, enricher: enricher}
}

// Analyze runs every extractor in order over the bundle.
// The returned analysis is complete: category always set, tags within
// bounds, at least one installation method.
func (an *Analyzer) Analyze(ctx context.Context, b *scrape.Bundle) *Analysis {
	text := b.CombinedText()

	a := &Analysis{
		Author:        b.Registry.Author,
		License:       b.Registry.License,
		RepositoryURL: b.Registry.RepositoryURL,
		HomepageURL:   b.Registry.HomepageURL,
		// Every crawled server launches over stdio; http/websocket servers
		// enter through operator edits.
		ConnectionType: model.ConnectionStdio,
	}
	if a.RepositoryURL == "" && b.Repo != nil {
		a.RepositoryURL = b.Repo.URL
	}
	if a.License == "" && b.Repo != nil {
		a.License = b.Repo.License
	}
	if a.Author == "" && b.Repo != nil {
		a.Author = b.Repo.Owner
	}
	if len(b.Docs) > 0 {
		a.DocumentationURL = b.Docs[0].URL
	}

	a.Official = an.isOfficial(b)
	a.Name = displayBase(b.Candidate.Identifier)
	a.DisplayName = titleCase(a.Name)
	a.Tools = ExtractTools(b)
	a.Auth = ExtractAuth(text, b.AuthHints)
	a.Category = an.SelectCategory(b, a.Tools)
	a.Tags = GenerateTags(b, a.Tools)
	a.UseCases = GenerateUseCases(b, a.Tools)
	a.InstallMethods = ExtractInstallMethods(b)
	a.Slug = BaseSlug(b.Candidate, repoOwner(b), a.Official)
	a.LongDescription, a.ShortDescription = BuildDescriptions(b, a.Tools)

	if an.enricher != nil {
		an.applyEnrichment(ctx, a, b)
	}
	return a
}

// applyEnrichment runs the optional enricher and keeps its output only when
// it leaves the record legal.
func (an *Analyzer) applyEnrichment(ctx context.Context, a *Analysis, b *scrape.Bundle) {
	backup := *a
	backupTags := append([]string(nil), a.Tags...)

	if err := an.enricher.Enrich(ctx, a, b); err != nil {
		*a = backup
		a.Tags = backupTags
		return
	}
	if a.LongDescription == "" || isBoilerplate(a.LongDescription) {
		a.LongDescription = backup.LongDescription
		a.ShortDescription = backup.ShortDescription
	}
	if len(a.Tags) < minTags || len(a.Tags) > maxTags {
		a.Tags = backupTags
	}
	if !a.Category.Valid() {
		a.Category = backup.Category
	}
}

func (an *Analyzer) isOfficial(b *scrape.Bundle) bool {
	owner := repoOwner(b)
	scope := identifierScope(b.Candidate.Identifier)
	for _, o := range an.cfg.OfficialOwners {
		if owner == o || scope == o {
			return true
		}
	}
	return false
}
