package analyze

import (
	"strings"
	"testing"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

func TestGenerateUseCases_ServiceTemplatesFirst(t *testing.T) {
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "slack-mcp-server"},
	}
	cases := GenerateUseCases(b, nil)
	if len(cases) == 0 || !strings.Contains(cases[0], "notifications") {
		t.Errorf("slack template should rank first, got %v", cases)
	}
}

func TestGenerateUseCases_Bounds(t *testing.T) {
	tools := make([]model.Tool, 0, 12)
	for _, name := range []string{
		"read_file", "write_file", "list_directory", "create_directory",
		"delete_file", "search_files", "update_metadata", "fetch_remote",
		"query_index", "send_report", "store_blob", "execute_script",
	} {
		tools = append(tools, model.Tool{Name: name})
	}
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "filesystem-mcp"},
	}
	cases := GenerateUseCases(b, tools)
	if len(cases) == 0 || len(cases) > 8 {
		t.Fatalf("use case count = %d", len(cases))
	}
	for _, c := range cases {
		if len(c) < 15 || len(c) > 150 {
			t.Errorf("use case %q length %d out of [15,150]", c, len(c))
		}
	}
}

func TestGenerateUseCases_GenericFallback(t *testing.T) {
	b := &scrape.Bundle{
		Candidate: model.Candidate{Ecosystem: model.EcosystemCargo, Identifier: "obscure-helper"},
	}
	cases := GenerateUseCases(b, nil)
	if len(cases) == 0 {
		t.Fatal("expected generic use cases")
	}
}

func TestToolSentence(t *testing.T) {
	tests := []struct {
		tool model.Tool
		want string
	}{
		{model.Tool{Name: "read_file", Description: "Read a file from disk."}, "Read a file from disk via the read_file tool"},
		{model.Tool{Name: "list_channels"}, "List channels through the MCP interface"},
		{model.Tool{Name: "frobnicate_widget"}, ""},
		{model.Tool{Name: "search"}, ""},
	}
	for _, tt := range tests {
		if got := toolSentence(tt.tool); got != tt.want {
			t.Errorf("toolSentence(%q) = %q, want %q", tt.tool.Name, got, tt.want)
		}
	}
}
