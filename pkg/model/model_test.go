package model

import (
	"strings"
	"testing"
)

func TestCleanSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@modelcontextprotocol/server-filesystem", "modelcontextprotocol-server-filesystem"},
		{"hubspot-mcp-server", "hubspot-mcp-server"},
		{"Hello World!", "hello-world"},
		{"--already--weird--", "already-weird"},
		{"github.com/acme/mcp-tool", "github-com-acme-mcp-tool"},
		{"UPPER_case.mix", "upper-case-mix"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := CleanSlug(tt.in); got != tt.want {
			t.Errorf("CleanSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanSlugIdempotent(t *testing.T) {
	inputs := []string{
		"@scope/pkg", "weird!!chars##here", "già-unicode-ø", "a--b--c", "-x-",
		"normal-slug", "", "UPPER", strings.Repeat("a-", 50),
	}
	for _, in := range inputs {
		once := CleanSlug(in)
		twice := CleanSlug(once)
		if once != twice {
			t.Errorf("CleanSlug not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValidToolName(t *testing.T) {
	valid := []string{"read_file", "ListTables", "_private", "q2"}
	for _, name := range valid {
		if !ValidToolName(name) {
			t.Errorf("ValidToolName(%q) = false, want true", name)
		}
	}
	invalid := []string{"", "2fast", "kebab-case", "with space", "dot.ted"}
	for _, name := range invalid {
		if ValidToolName(name) {
			t.Errorf("ValidToolName(%q) = true, want false", name)
		}
	}
}

func TestCategoryEnumClosed(t *testing.T) {
	if len(Categories) != 20 {
		t.Fatalf("Categories has %d entries, want 20", len(Categories))
	}
	seen := make(map[Category]bool)
	for _, c := range Categories {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	if Category("other").Valid() {
		t.Error(`"other" must not be a valid category`)
	}
	if Category("").Valid() {
		t.Error("empty category must not be valid")
	}
}

func TestEcosystemValid(t *testing.T) {
	for _, e := range Ecosystems {
		if !e.Valid() {
			t.Errorf("ecosystem %q should be valid", e)
		}
	}
	if Ecosystem("rubygems").Valid() {
		t.Error("unknown ecosystem should be invalid")
	}
}

func TestCandidateKey(t *testing.T) {
	a := Candidate{Ecosystem: EcosystemNPM, Identifier: "mcp-server-a"}
	b := Candidate{Ecosystem: EcosystemPyPI, Identifier: "mcp-server-a"}
	if a.Key() == b.Key() {
		t.Error("same identifier in different ecosystems must have distinct keys")
	}
}

func TestSearchText(t *testing.T) {
	m := &MCP{
		Name:             "Server Filesystem",
		ShortDescription: "Filesystem access",
		Tags:             []string{"mcp", "filesystem"},
		UseCases:         []string{"Read files from disk"},
		Category:         CategoryDevelopmentTools,
		Author:           "Anthropic",
	}
	text := m.SearchText()
	for _, want := range []string{"server filesystem", "filesystem access", "mcp", "read files from disk", "development-tools", "anthropic"} {
		if !strings.Contains(text, want) {
			t.Errorf("SearchText missing %q: %q", want, text)
		}
	}
	if text != strings.ToLower(text) {
		t.Error("SearchText should be lowercase")
	}
}

func TestOwnedByOperator(t *testing.T) {
	m := &MCP{FieldSources: map[string]FieldSource{"long_description": SourceOperator}}
	if !m.OwnedByOperator("long_description") {
		t.Error("long_description should be operator-owned")
	}
	if m.OwnedByOperator("tags") {
		t.Error("tags should default to crawler-owned")
	}
}

func TestIntelligenceReportVerified(t *testing.T) {
	full := &IntelligenceReport{Strategy: StrategyFull}
	if !full.Verified() {
		t.Error("full strategy should be verified")
	}
	fb := &IntelligenceReport{Strategy: StrategyFallbackBasic}
	if fb.Verified() {
		t.Error("fallback strategy should not be verified")
	}
	var nilReport *IntelligenceReport
	if nilReport.Verified() {
		t.Error("nil report should not be verified")
	}
}
