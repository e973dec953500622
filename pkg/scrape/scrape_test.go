package scrape

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	crawlerrors "github.com/mcpscout/mcpcrawl/pkg/errors"
	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/registry/github"
	"github.com/mcpscout/mcpcrawl/pkg/registry/npm"
)

type fakeNPM struct {
	info *npm.PackageInfo
	err  error
}

func (f *fakeNPM) FetchPackage(context.Context, string, bool) (*npm.PackageInfo, error) {
	return f.info, f.err
}

type fakeRepo struct {
	info   *github.RepoInfo
	readme string
	err    error
}

func (f *fakeRepo) FetchRepo(context.Context, string, string, bool) (*github.RepoInfo, error) {
	return f.info, f.err
}

func (f *fakeRepo) FetchReadme(context.Context, string, string, bool) (string, error) {
	if f.readme == "" {
		return "", errors.New("no readme")
	}
	return f.readme, nil
}

func TestNPMScraper_Scrape(t *testing.T) {
	client := &fakeNPM{info: &npm.PackageInfo{
		Name:         "@modelcontextprotocol/server-filesystem",
		Version:      "1.2.0",
		Description:  "MCP server for filesystem access",
		License:      "MIT",
		Author:       "Anthropic",
		Repository:   "https://github.com/modelcontextprotocol/servers",
		Dependencies: []string{"@modelcontextprotocol/sdk"},
	}}
	gh := &fakeRepo{
		info: &github.RepoInfo{
			Owner:    "modelcontextprotocol",
			Name:     "servers",
			FullName: "modelcontextprotocol/servers",
			Stars:    5000,
			Topics:   []string{"mcp"},
		},
		readme: "# Filesystem Server\n\n```bash\nnpx @modelcontextprotocol/server-filesystem /path\n```\n",
	}

	s := NewNPM(client, gh, nil)
	c := model.Candidate{Ecosystem: model.EcosystemNPM, Identifier: "@modelcontextprotocol/server-filesystem"}

	b, err := s.Scrape(context.Background(), c, false)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if b.Registry.Version != "1.2.0" {
		t.Errorf("registry version = %q", b.Registry.Version)
	}
	if b.Repo == nil || b.Repo.Stars != 5000 {
		t.Fatalf("repo record missing or wrong: %+v", b.Repo)
	}
	if !strings.Contains(b.Repo.Readme, "Filesystem Server") {
		t.Errorf("readme not captured")
	}
	if len(b.InstallHints) != 1 || !strings.Contains(b.InstallHints[0], "npx @modelcontextprotocol") {
		t.Errorf("install hints = %v", b.InstallHints)
	}
}

func TestNPMScraper_RegistryMissIsFatal(t *testing.T) {
	client := &fakeNPM{err: fmt.Errorf("%w: npm package gone", registry.ErrNotFound)}
	s := NewNPM(client, nil, nil)

	_, err := s.Scrape(context.Background(), model.Candidate{Identifier: "gone"}, false)
	if crawlerrors.GetCode(err) != crawlerrors.ErrCodeRegistryNotFound {
		t.Errorf("expected REGISTRY_NOT_FOUND, got %v", err)
	}
}

func TestNPMScraper_RepoFailureNotFatal(t *testing.T) {
	client := &fakeNPM{info: &npm.PackageInfo{
		Name:        "mcp-thing",
		Version:     "0.1.0",
		Description: "something",
		Repository:  "https://github.com/acme/mcp-thing",
	}}
	gh := &fakeRepo{err: errors.New("github is down")}

	b, err := NewNPM(client, gh, nil).Scrape(context.Background(), model.Candidate{Identifier: "mcp-thing"}, false)
	if err != nil {
		t.Fatalf("repo failure should not be fatal: %v", err)
	}
	if b.Repo != nil {
		t.Errorf("expected nil repo record, got %+v", b.Repo)
	}
}

func TestShellBlocks(t *testing.T) {
	text := "Intro\n" +
		"```json\n{\"tools\": []}\n```\n" +
		"Install:\n" +
		"```bash\nnpx mcp-server-a\n```\n" +
		"```\npipx install mcp-server-a\n```\n" +
		"```python\nprint('hi')\n```\n"

	got := ShellBlocks(text)
	want := []string{"npx mcp-server-a", "pipx install mcp-server-a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ShellBlocks = %v, want %v", got, want)
	}
}

func TestExtractHints_Auth(t *testing.T) {
	text := "Set HUBSPOT_API_KEY before running.\nUnrelated line.\nSupports OAuth flows too.\n"
	_, auth := extractHints(text)
	if len(auth) != 2 {
		t.Fatalf("auth hints = %v", auth)
	}
	if !strings.Contains(auth[0], "HUBSPOT_API_KEY") {
		t.Errorf("env hint missing: %v", auth)
	}
}

func TestCombinedText_Order(t *testing.T) {
	b := &Bundle{
		Registry: RegistryRecord{Description: "registry desc"},
		Repo:     &RepoRecord{Readme: "readme text"},
		Docs:     []DocPage{{Text: "doc text"}},
	}
	text := b.CombinedText()
	if !(strings.Index(text, "registry desc") < strings.Index(text, "readme text") &&
		strings.Index(text, "readme text") < strings.Index(text, "doc text")) {
		t.Errorf("combined text out of order: %q", text)
	}
}

func TestDocURLs_SkipsRepoHost(t *testing.T) {
	got := docURLs("https://acme.dev/docs", "https://github.com/acme/tool", "")
	if !reflect.DeepEqual(got, []string{"https://acme.dev/docs"}) {
		t.Errorf("docURLs = %v", got)
	}
}

func TestProjectRepoURL(t *testing.T) {
	urls := map[string]string{
		"Homepage":   "https://acme.dev",
		"Repository": "https://github.com/acme/tool.git",
	}
	if got := projectRepoURL(urls); got != "https://github.com/acme/tool" {
		t.Errorf("projectRepoURL = %q", got)
	}
	fallback := map[string]string{"Source stuff": "https://github.com/acme/other"}
	if got := projectRepoURL(fallback); got != "https://github.com/acme/other" {
		t.Errorf("fallback = %q", got)
	}
	if got := projectRepoURL(map[string]string{"Homepage": "https://acme.dev"}); got != "" {
		t.Errorf("no repo should yield empty, got %q", got)
	}
}

func TestHTMLToPage(t *testing.T) {
	raw := `<html><head><title>MCP Docs</title><script>var x=1;</script></head>
<body><h1>Tools</h1><p>read_file &amp; write_file</p>
<a href="https://acme.dev/guide">guide</a></body></html>`

	page := htmlToPage("https://acme.dev", raw)
	if page.Title != "MCP Docs" {
		t.Errorf("title = %q", page.Title)
	}
	if strings.Contains(page.Text, "var x=1") {
		t.Error("script content should be stripped")
	}
	if !strings.Contains(page.Text, "read_file & write_file") {
		t.Errorf("entities not unescaped: %q", page.Text)
	}
	if len(page.Links) != 1 || page.Links[0] != "https://acme.dev/guide" {
		t.Errorf("links = %v", page.Links)
	}
	if page.WordCount == 0 {
		t.Error("word count should be positive")
	}
}
