package intel

import (
	"testing"
)

func TestParseToolBlob(t *testing.T) {
	output := `starting acme-mcp v1.2.0
registered capabilities: {"tools": [
  {"name": "search_docs", "description": "Search the docs", "inputSchema": {"type": "object"}},
  {"name": "fetch_page", "description": "Fetch a page"},
  {"name": "search_docs", "description": "duplicate"},
  {"name": "bad-name", "description": "kebab is illegal"}
]}
listening on stdio`

	tools := ParseToolBlob(output)
	if len(tools) != 2 {
		t.Fatalf("tools = %v", tools)
	}
	if tools[0].Name != "search_docs" || tools[1].Name != "fetch_page" {
		t.Errorf("names = %q %q", tools[0].Name, tools[1].Name)
	}
	if tools[0].InputSchema["type"] != "object" {
		t.Errorf("schema = %v", tools[0].InputSchema)
	}
}

func TestParseToolBlob_NoBlob(t *testing.T) {
	for _, output := range []string{
		"",
		"plain startup banner",
		`"tools" mentioned without json`,
		`{"tools": "not-an-array"}`,
	} {
		if tools := ParseToolBlob(output); tools != nil {
			t.Errorf("%q: got %v", output, tools)
		}
	}
}
