package analyze

import (
	"slices"
	"testing"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

func TestGenerateTags_Baseline(t *testing.T) {
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "slack-mcp-server"},
		Registry:  scrape.RegistryRecord{Keywords: []string{"slack", "bot"}},
	}
	tags := GenerateTags(b, nil)

	for _, want := range []string{"mcp", "model-context-protocol", "npm", "slack", "messaging"} {
		if !slices.Contains(tags, want) {
			t.Errorf("missing tag %q in %v", want, tags)
		}
	}
	if tags[0] != "mcp" {
		t.Errorf("baseline tag should come first, got %q", tags[0])
	}
}

func TestGenerateTags_Bounds(t *testing.T) {
	bundles := []*scrape.Bundle{
		{Candidate: model.Candidate{Ecosystem: model.EcosystemCargo, Identifier: "x2"}},
		{Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "slack-github-postgres-redis-aws-docker-notion-jira-grafana-hubspot"},
			Registry: scrape.RegistryRecord{Keywords: []string{
				"one", "two", "three", "four", "five", "six", "seven", "eight",
				"nine", "ten", "eleven", "twelve", "thirteen", "fourteen",
			}}},
	}
	for _, b := range bundles {
		tags := GenerateTags(b, nil)
		if len(tags) < 20 || len(tags) > 30 {
			t.Errorf("%s: tag count %d out of [20,30]", b.Candidate.Identifier, len(tags))
		}
		seen := make(map[string]bool)
		for _, tag := range tags {
			if seen[tag] {
				t.Errorf("%s: duplicate tag %q", b.Candidate.Identifier, tag)
			}
			seen[tag] = true
			if model.CleanSlug(tag) != tag {
				t.Errorf("%s: tag %q not in slug form", b.Candidate.Identifier, tag)
			}
		}
	}
}

func TestGenerateTags_CapabilityVerbs(t *testing.T) {
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemPyPI, Identifier: "acme-mcp"},
	}
	tools := []model.Tool{{Name: "search_docs"}, {Name: "create_ticket"}}
	tags := GenerateTags(b, tools)
	for _, want := range []string{"search", "create"} {
		if !slices.Contains(tags, want) {
			t.Errorf("missing capability tag %q in %v", want, tags)
		}
	}
}

func TestGenerateTags_Deterministic(t *testing.T) {
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "github-slack-mcp"},
		Registry:  scrape.RegistryRecord{Dependencies: []string{"express", "redis"}},
	}
	first := GenerateTags(b, nil)
	for range 20 {
		if again := GenerateTags(b, nil); !slices.Equal(first, again) {
			t.Fatalf("tag order unstable:\n%v\n%v", first, again)
		}
	}
}
