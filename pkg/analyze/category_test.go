package analyze

import (
	"testing"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

func TestSelectCategory(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		desc       string
		want       model.Category
	}{
		{"database", "mcp-server-postgres", "Query PostgreSQL databases", model.CategoryDatabases},
		{"payments", "stripe-mcp", "Look up payments and invoices", model.CategoryPayments},
		{"messaging", "slack-mcp-server", "Send messages to Slack channels", model.CategoryMessaging},
		{"infra", "mcp-kubernetes", "Manage Kubernetes deployments", model.CategoryInfrastructure},
		{"sentinel", "mystery-pkg", "does something unusual", model.CategoryDevelopmentTools},
	}
	an := New(Config{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &scrape.Bundle{
				Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: tt.identifier},
				Registry:  scrape.RegistryRecord{Description: tt.desc},
			}
			if got := an.SelectCategory(b, nil); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectCategory_AliasBeatsKeywords(t *testing.T) {
	an := New(Config{CategoryAliases: map[string]model.Category{"fintech": model.CategoryFinance}}, nil)
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "mcp-server-postgres"},
		Registry: scrape.RegistryRecord{
			Description: "Query PostgreSQL databases",
			Keywords:    []string{"FinTech"},
		},
	}
	if got := an.SelectCategory(b, nil); got != model.CategoryFinance {
		t.Errorf("alias should win, got %q", got)
	}
}

func TestSelectCategory_IdentifierOutweighsReadme(t *testing.T) {
	an := New(Config{}, nil)
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "stripe-mcp"},
		Repo:      &scrape.RepoRecord{Readme: "uses a database for caching"},
	}
	if got := an.SelectCategory(b, nil); got != model.CategoryPayments {
		t.Errorf("got %q, want payments", got)
	}
}

func TestSelectCategory_ToolNamesContribute(t *testing.T) {
	an := New(Config{}, nil)
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemPyPI, Identifier: "acme-helper"},
	}
	tools := []model.Tool{{Name: "execute_query"}, {Name: "list_tables"}, {Name: "describe_table"}}
	if got := an.SelectCategory(b, tools); got != model.CategoryDatabases {
		t.Errorf("got %q, want databases", got)
	}
}
