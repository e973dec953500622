package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

func filesystemBundle() *scrape.Bundle {
	readme := `# Filesystem Server

MCP server for filesystem access.

### read_file(path: string)
Read a file from disk.

### write_file(path: string, content: string)
Write a file.

### list_directory(path: string)
List directory contents.

` + "```bash\nnpx @modelcontextprotocol/server-filesystem /path\n```\n"

	b := &scrape.Bundle{
		Candidate: model.Candidate{
			Ecosystem:  model.EcosystemNPM,
			Identifier: "@modelcontextprotocol/server-filesystem",
		},
		Registry: scrape.RegistryRecord{
			Name:          "@modelcontextprotocol/server-filesystem",
			Description:   "MCP server for filesystem access with configurable roots",
			License:       "MIT",
			Author:        "Anthropic",
			Dependencies:  []string{"@modelcontextprotocol/sdk"},
			RepositoryURL: "https://github.com/modelcontextprotocol/servers",
		},
		Repo: &scrape.RepoRecord{
			URL:    "https://github.com/modelcontextprotocol/servers",
			Owner:  "modelcontextprotocol",
			Readme: readme,
		},
	}
	b.InstallHints, b.AuthHints = nil, nil
	b.InstallHints = append(b.InstallHints, "npx @modelcontextprotocol/server-filesystem /path")
	return b
}

func TestAnalyze_OfficialFilesystemServer(t *testing.T) {
	an := New(Config{}, nil)
	a := an.Analyze(context.Background(), filesystemBundle())

	if a.Slug != "server-filesystem" {
		t.Errorf("slug = %q, want server-filesystem", a.Slug)
	}
	if !a.Official {
		t.Error("modelcontextprotocol packages are official")
	}
	if len(a.Tools) != 3 {
		t.Errorf("tools = %v", a.Tools)
	}
	if a.Category != model.CategoryDevelopmentTools {
		t.Errorf("category = %q", a.Category)
	}
	if len(a.Tags) < 20 || len(a.Tags) > 30 {
		t.Errorf("tag count %d out of bounds", len(a.Tags))
	}
	if a.Auth.Required {
		t.Errorf("no auth expected, got %v", a.Auth.Methods)
	}
	primary := a.PrimaryInstall()
	if primary.Kind != model.InstallNPM || !strings.HasPrefix(primary.Command, "npx ") {
		t.Errorf("primary install = %+v", primary)
	}
	if a.ConnectionType != model.ConnectionStdio {
		t.Errorf("connection type = %q", a.ConnectionType)
	}
}

func TestAnalyze_CategoryAlwaysValid(t *testing.T) {
	an := New(Config{}, nil)
	bundles := []*scrape.Bundle{
		filesystemBundle(),
		{Candidate: model.Candidate{Ecosystem: model.EcosystemPyPI, Identifier: "x"}},
		{Candidate: model.Candidate{Ecosystem: model.EcosystemCargo, Identifier: "mystery-crate"},
			Registry: scrape.RegistryRecord{Description: "totally unclassifiable"}},
	}
	for _, b := range bundles {
		if a := an.Analyze(context.Background(), b); !a.Category.Valid() {
			t.Errorf("invalid category %q for %q", a.Category, b.Candidate.Identifier)
		}
	}
}

func TestAnalyze_CategoryAlias(t *testing.T) {
	an := New(Config{CategoryAliases: map[string]model.Category{"llmops": model.CategoryAITools}}, nil)
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemPyPI, Identifier: "some-pkg"},
		Registry:  scrape.RegistryRecord{Keywords: []string{"LLMOps"}},
	}
	if a := an.Analyze(context.Background(), b); a.Category != model.CategoryAITools {
		t.Errorf("alias not applied, got %q", a.Category)
	}
}

type failingEnricher struct{}

func (failingEnricher) Enrich(context.Context, *Analysis, *scrape.Bundle) error {
	return errors.New("llm unavailable")
}

type emptyingEnricher struct{}

func (emptyingEnricher) Enrich(_ context.Context, a *Analysis, _ *scrape.Bundle) error {
	a.LongDescription = ""
	a.Tags = []string{"just-one"}
	return nil
}

func TestAnalyze_EnricherFailureKeepsDeterministicOutput(t *testing.T) {
	base := New(Config{}, nil).Analyze(context.Background(), filesystemBundle())

	for _, enricher := range []Enricher{failingEnricher{}, emptyingEnricher{}} {
		a := New(Config{}, enricher).Analyze(context.Background(), filesystemBundle())
		if a.LongDescription != base.LongDescription {
			t.Errorf("description lost through enrichment: %q", a.LongDescription)
		}
		if len(a.Tags) < 20 {
			t.Errorf("tags lost through enrichment: %d", len(a.Tags))
		}
	}
}

func TestDisplayBase(t *testing.T) {
	tests := map[string]string{
		"@modelcontextprotocol/server-filesystem": "server-filesystem",
		"hubspot-mcp-server":                      "hubspot-mcp-server",
		"github.com/acme/mcp-tool":                "mcp-tool",
		"github.com/acme/mcp-tool/v2":             "mcp-tool",
	}
	for in, want := range tests {
		if got := displayBase(in); got != want {
			t.Errorf("displayBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("server-filesystem"); got != "Server Filesystem" {
		t.Errorf("titleCase = %q", got)
	}
	if got := titleCase("mcp-sql-tool"); got != "MCP SQL Tool" {
		t.Errorf("titleCase = %q", got)
	}
}
