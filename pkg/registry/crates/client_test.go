package crates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

func testClient(serverURL string) *Client {
	limits := httputil.RateLimits{RegistryQPS: 1000, RepoAPIQPS: 1000, DocSiteQPS: 1000, GenericQPS: 1000}
	fetcher := httputil.NewFetcher(limits, "mcpcrawl-test", nil)
	return &Client{
		Client:  registry.NewClient(fetcher, cache.NewNullCache(), "crates:", time.Hour, httputil.CategoryRegistry, nil),
		baseURL: serverURL,
	}
}

func TestClient_FetchCrate(t *testing.T) {
	crateResp := crateResponse{}
	crateResp.Crate.Name = "mcp-server-fs"
	crateResp.Crate.MaxVersion = "0.3.1"
	crateResp.Crate.Description = "Filesystem MCP server"
	crateResp.Crate.License = "MIT"
	crateResp.Crate.Repository = "https://github.com/acme/mcp-server-fs.git"
	crateResp.Crate.Keywords = []string{"mcp", "llm"}
	crateResp.Crate.Downloads = 4200

	depsResp := depsResponse{
		Dependencies: []struct {
			CrateID  string `json:"crate_id"`
			Kind     string `json:"kind"`
			Optional bool   `json:"optional"`
		}{
			{CrateID: "rmcp", Kind: "normal", Optional: false},
			{CrateID: "criterion", Kind: "dev", Optional: false},
			{CrateID: "tracing", Kind: "normal", Optional: true},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/mcp-server-fs":
			json.NewEncoder(w).Encode(crateResp)
		case "/crates/mcp-server-fs/0.3.1/dependencies":
			json.NewEncoder(w).Encode(depsResp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := testClient(server.URL)

	info, err := c.FetchCrate(context.Background(), "mcp-server-fs", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}
	if info.Version != "0.3.1" {
		t.Errorf("expected version 0.3.1, got %s", info.Version)
	}
	if info.Repository != "https://github.com/acme/mcp-server-fs" {
		t.Errorf("repository not normalized: %s", info.Repository)
	}
	if !reflect.DeepEqual(info.Dependencies, []string{"rmcp"}) {
		t.Errorf("expected only normal non-optional deps, got %v", info.Dependencies)
	}
}

func TestClient_FetchCrate_DepsFailureIgnored(t *testing.T) {
	crateResp := crateResponse{}
	crateResp.Crate.Name = "mcp-probe"
	crateResp.Crate.MaxVersion = "0.1.0"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crates/mcp-probe" {
			json.NewEncoder(w).Encode(crateResp)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(server.URL)

	info, err := c.FetchCrate(context.Background(), "mcp-probe", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}
	if len(info.Dependencies) != 0 {
		t.Errorf("expected no deps, got %v", info.Dependencies)
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(server.URL)

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("q"); got != "mcp" {
			t.Errorf("unexpected query %q", got)
		}
		w.Write([]byte(`{"crates": [
			{"name": "mcp-attr", "description": "declarative MCP servers", "repository": "https://github.com/x/mcp-attr"},
			{"name": "rmcp", "description": "official MCP SDK", "repository": ""}
		]}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	hits, err := c.Search(context.Background(), "mcp", 20, true)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 || hits[0].Name != "mcp-attr" {
		t.Fatalf("unexpected hits %v", hits)
	}
}

func TestClient_ReverseDependencies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crates/rmcp/reverse_dependencies" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"versions": [
			{"crate": "mcp-server-fs"},
			{"crate": "mcp-server-fs"},
			{"crate": "mcp-gateway"}
		]}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	names, err := c.ReverseDependencies(context.Background(), "rmcp", 50, true)
	if err != nil {
		t.Fatalf("ReverseDependencies failed: %v", err)
	}
	want := []string{"mcp-server-fs", "mcp-gateway"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}
