// Package crates provides access to the crates.io registry API: crate detail,
// search, and reverse dependencies.
package crates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

// CrateInfo holds metadata for a Rust crate from crates.io.
// The Version field contains the max_version. Dependencies include only
// "normal" (non-dev, non-optional) dependencies.
type CrateInfo struct {
	Name         string
	Version      string
	Description  string
	License      string
	Repository   string
	HomePage     string
	Keywords     []string
	Categories   []string
	Downloads    int
	Dependencies []string
	UpdatedAt    time.Time
}

// SearchHit is one result from the crates.io search endpoint.
type SearchHit struct {
	Name        string
	Description string
	Repository  string
}

// Client provides access to the crates.io package registry API.
// All methods are safe for concurrent use.
//
// Note: crates.io requires a User-Agent header; the shared fetcher sets one.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a crates.io client with the given fetcher and cache backend.
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(fetcher, backend, "crates:", cacheTTL, httputil.CategoryRegistry, nil),
		baseURL: "https://crates.io/api/v1",
	}
}

// FetchCrate retrieves metadata for a Rust crate from crates.io.
// Dependency fetching failures are silently ignored; Dependencies will be
// empty if the secondary API call fails.
// Returns [registry.ErrNotFound] if the crate doesn't exist.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	key := crate

	var info CrateInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, crate), &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}

	deps, _ := c.fetchDeps(ctx, crate, data.Crate.MaxVersion)

	*info = CrateInfo{
		Name:         data.Crate.Name,
		Version:      data.Crate.MaxVersion,
		Description:  data.Crate.Description,
		License:      data.Crate.License,
		Repository:   registry.NormalizeRepoURL(data.Crate.Repository),
		HomePage:     data.Crate.HomePage,
		Keywords:     data.Crate.Keywords,
		Categories:   data.Crate.Categories,
		Downloads:    data.Crate.Downloads,
		Dependencies: deps,
		UpdatedAt:    data.Crate.UpdatedAt,
	}
	return nil
}

func (c *Client) fetchDeps(ctx context.Context, crate, version string) ([]string, error) {
	url := fmt.Sprintf("%s/crates/%s/%s/dependencies", c.baseURL, crate, version)

	var data depsResponse
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}

	var deps []string
	for _, d := range data.Dependencies {
		if d.Kind == "normal" && !d.Optional {
			deps = append(deps, d.CrateID)
		}
	}
	return deps, nil
}

// Search queries crates.io for text and returns up to size hits.
func (c *Client) Search(ctx context.Context, text string, size int, refresh bool) ([]SearchHit, error) {
	if size <= 0 {
		size = 50
	}
	key := fmt.Sprintf("search:%s:%d", text, size)

	var hits []SearchHit
	err := c.Cached(ctx, key, refresh, &hits, func() error {
		url := fmt.Sprintf("%s/crates?q=%s&per_page=%d", c.baseURL, registry.URLEncode(text), size)

		var data searchResponse
		if err := c.Get(ctx, url, &data); err != nil {
			return err
		}
		hits = hits[:0]
		for _, cr := range data.Crates {
			hits = append(hits, SearchHit{
				Name:        cr.Name,
				Description: cr.Description,
				Repository:  registry.NormalizeRepoURL(cr.Repository),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// ReverseDependencies returns the names of crates that depend on crate.
// This is the dependency-search surface for Rust discovery.
func (c *Client) ReverseDependencies(ctx context.Context, crate string, size int, refresh bool) ([]string, error) {
	if size <= 0 {
		size = 50
	}
	key := fmt.Sprintf("revdeps:%s:%d", crate, size)

	var names []string
	err := c.Cached(ctx, key, refresh, &names, func() error {
		url := fmt.Sprintf("%s/crates/%s/reverse_dependencies?per_page=%d", c.baseURL, crate, size)

		var data revDepsResponse
		if err := c.Get(ctx, url, &data); err != nil {
			return err
		}
		names = names[:0]
		seen := make(map[string]bool)
		for _, v := range data.Versions {
			if v.Crate != "" && !seen[v.Crate] {
				seen[v.Crate] = true
				names = append(names, v.Crate)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

type crateResponse struct {
	Crate struct {
		Name        string    `json:"name"`
		MaxVersion  string    `json:"max_version"`
		Description string    `json:"description"`
		License     string    `json:"license"`
		Repository  string    `json:"repository"`
		HomePage    string    `json:"homepage"`
		Keywords    []string  `json:"keywords"`
		Categories  []string  `json:"categories"`
		Downloads   int       `json:"downloads"`
		UpdatedAt   time.Time `json:"updated_at"`
	} `json:"crate"`
}

type depsResponse struct {
	Dependencies []struct {
		CrateID  string `json:"crate_id"`
		Kind     string `json:"kind"`
		Optional bool   `json:"optional"`
	} `json:"dependencies"`
}

type searchResponse struct {
	Crates []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Repository  string `json:"repository"`
	} `json:"crates"`
}

type revDepsResponse struct {
	Versions []struct {
		Crate string `json:"crate"`
	} `json:"versions"`
}
