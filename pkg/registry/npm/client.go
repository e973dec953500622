// Package npm provides access to the npm registry API: package detail for
// scraping and the search surface for discovery.
package npm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

// PackageInfo holds metadata for a package from the npm registry.
type PackageInfo struct {
	Name         string
	Version      string
	Description  string
	License      string
	Author       string
	Repository   string
	HomePage     string
	Keywords     []string
	Dependencies []string
	PublishedAt  time.Time
}

// SearchHit is one result from the npm search endpoint.
type SearchHit struct {
	Name        string
	Description string
	Repository  string
	Keywords    []string
}

// Client provides access to the npm registry API.
// All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates an npm client with the given fetcher and cache backend.
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(fetcher, backend, "npm:", cacheTTL, httputil.CategoryRegistry, nil),
		baseURL: "https://registry.npmjs.org",
	}
}

// FetchPackage retrieves metadata for a package from the npm registry.
// If refresh is true, the cache is bypassed.
// Returns [registry.ErrNotFound] if the package doesn't exist.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = strings.TrimSpace(pkg)
	key := pkg

	var info PackageInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, info *PackageInfo) error {
	// Scoped names need their slash escaped (@scope%2fname).
	escaped := strings.ReplaceAll(pkg, "/", "%2f")

	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+escaped, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, pkg)
		}
		return err
	}

	latest := data.DistTags.Latest
	v, ok := data.Versions[latest]
	if !ok {
		return fmt.Errorf("version %s not found", latest)
	}

	*info = PackageInfo{
		Name:         data.Name,
		Version:      latest,
		Description:  v.Description,
		License:      extractField(v.License, "type"),
		Author:       extractField(v.Author, "name"),
		Repository:   registry.NormalizeRepoURL(extractField(v.Repository, "url")),
		HomePage:     v.HomePage,
		Keywords:     v.Keywords,
		Dependencies: slices.Collect(maps.Keys(v.Dependencies)),
	}
	if t, ok := data.Time[latest]; ok {
		info.PublishedAt = t
	}
	return nil
}

// Search queries the npm search endpoint for text and returns up to size hits.
// Results are cached like package detail.
func (c *Client) Search(ctx context.Context, text string, size int, refresh bool) ([]SearchHit, error) {
	if size <= 0 {
		size = 50
	}
	key := fmt.Sprintf("search:%s:%d", text, size)

	var hits []SearchHit
	err := c.Cached(ctx, key, refresh, &hits, func() error {
		url := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d", c.baseURL, registry.URLEncode(text), size)

		var data searchResponse
		if err := c.Get(ctx, url, &data); err != nil {
			return err
		}
		hits = hits[:0]
		for _, obj := range data.Objects {
			hits = append(hits, SearchHit{
				Name:        obj.Package.Name,
				Description: obj.Package.Description,
				Repository:  registry.NormalizeRepoURL(obj.Package.Links.Repository),
				Keywords:    obj.Package.Keywords,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

type registryResponse struct {
	Name     string                    `json:"name"`
	DistTags distTags                  `json:"dist-tags"`
	Versions map[string]versionDetails `json:"versions"`
	Time     map[string]time.Time      `json:"time"`
}

type distTags struct {
	Latest string `json:"latest"`
}

type versionDetails struct {
	Description  string            `json:"description"`
	License      any               `json:"license"`
	Author       any               `json:"author"`
	Repository   any               `json:"repository"`
	HomePage     string            `json:"homepage"`
	Keywords     []string          `json:"keywords"`
	Dependencies map[string]string `json:"dependencies"`
}

type searchResponse struct {
	Objects []struct {
		Package struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Keywords    []string `json:"keywords"`
			Links       struct {
				Repository string `json:"repository"`
			} `json:"links"`
		} `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}
