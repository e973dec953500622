package normalize

import (
	"testing"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

func TestIndex_Find(t *testing.T) {
	known := []*model.MCP{
		{
			Slug:          "docs-mcp-acme",
			Ecosystem:     model.EcosystemNPM,
			Identifier:    "docs-mcp",
			RepositoryURL: "https://github.com/acme/docs-mcp",
			Endpoint:      "npx docs-mcp",
		},
		{
			Slug:       "weather-mcp",
			Ecosystem:  model.EcosystemPyPI,
			Identifier: "weather-mcp",
		},
	}
	ix := NewIndex(known)

	tests := []struct {
		name     string
		fresh    *model.MCP
		wantSlug string
		wantVia  MatchKey
		wantOK   bool
	}{
		{
			"slug match",
			&model.MCP{Slug: "docs-mcp-acme"},
			"docs-mcp-acme", MatchSlug, true,
		},
		{
			"identity match under different slug",
			&model.MCP{Slug: "docs-mcp-other", Ecosystem: model.EcosystemNPM, Identifier: "docs-mcp"},
			"docs-mcp-acme", MatchIdentity, true,
		},
		{
			"fingerprint match",
			&model.MCP{
				Slug:          "renamed-docs",
				Ecosystem:     model.EcosystemNPM,
				Identifier:    "docs-mcp-renamed",
				RepositoryURL: "https://github.com/acme/docs-mcp.git",
				Endpoint:      "npx docs-mcp",
			},
			"docs-mcp-acme", MatchFingerprint, true,
		},
		{
			"no match",
			&model.MCP{Slug: "brand-new", Ecosystem: model.EcosystemCargo, Identifier: "brand-new"},
			"", "", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, via, ok := ix.Find(tt.fresh)
			if slug != tt.wantSlug || via != tt.wantVia || ok != tt.wantOK {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", slug, via, ok, tt.wantSlug, tt.wantVia, tt.wantOK)
			}
		})
	}
}

func TestIndex_FingerprintNeedsBothParts(t *testing.T) {
	ix := NewIndex([]*model.MCP{{
		Slug:          "partial",
		Ecosystem:     model.EcosystemNPM,
		Identifier:    "partial",
		RepositoryURL: "https://github.com/acme/partial",
	}})
	fresh := &model.MCP{
		Slug:          "other",
		Ecosystem:     model.EcosystemGo,
		Identifier:    "github.com/acme/other",
		RepositoryURL: "https://github.com/acme/partial",
	}
	if _, _, ok := ix.Find(fresh); ok {
		t.Error("repo URL alone must not fingerprint-match")
	}
}
