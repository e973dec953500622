// Package pypi provides access to the PyPI registry: the JSON API for
// package detail and the HTML search page as a discovery fallback (PyPI
// retired its search API).
package pypi

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

var (
	depRE    = regexp.MustCompile(`^([a-zA-Z0-9_-]+)`)
	markerRE = regexp.MustCompile(`;\s*(.+)`)
	skipRE   = regexp.MustCompile(`extra|dev|test`)

	// Search results are scraped from the HTML page.
	snippetNameRE = regexp.MustCompile(`<span class="package-snippet__name">([^<]+)</span>`)
	snippetDescRE = regexp.MustCompile(`<p class="package-snippet__description">([^<]*)</p>`)
)

// PackageInfo holds metadata for a Python package from PyPI.
// Package names are normalized following PEP 503 (lowercase, underscores→hyphens).
// Dependencies list only runtime dependencies; extras, dev, and test deps are excluded.
type PackageInfo struct {
	Name         string
	Version      string
	Summary      string
	License      string
	Author       string
	Keywords     []string
	Classifiers  []string
	Dependencies []string
	ProjectURLs  map[string]string
	HomePage     string
}

// SearchHit is one result scraped from the PyPI search page.
type SearchHit struct {
	Name        string
	Description string
}

// Client provides access to the PyPI package registry API.
// All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL   string // JSON API base, e.g. https://pypi.org/pypi
	searchURL string // HTML search base, e.g. https://pypi.org/search/
}

// NewClient creates a PyPI client with the given fetcher and cache backend.
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:    registry.NewClient(fetcher, backend, "pypi:", cacheTTL, httputil.CategoryRegistry, nil),
		baseURL:   "https://pypi.org/pypi",
		searchURL: "https://pypi.org/search/",
	}
}

// FetchPackage retrieves metadata for a Python package from PyPI.
// The pkg parameter is normalized automatically (PEP 503).
// Returns [registry.ErrNotFound] if the package doesn't exist.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = registry.NormalizePkgName(pkg)
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
	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, pkg), &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}

	urls := make(map[string]string, len(data.Info.ProjectURLs))
	for k, v := range data.Info.ProjectURLs {
		if s, ok := v.(string); ok {
			urls[k] = s
		}
	}

	*info = PackageInfo{
		Name:         registry.NormalizePkgName(data.Info.Name),
		Version:      data.Info.Version,
		Summary:      data.Info.Summary,
		License:      extractLicenseType(data.Info.License, data.Info.Classifiers),
		Author:       data.Info.Author,
		Keywords:     splitKeywords(data.Info.Keywords),
		Classifiers:  data.Info.Classifiers,
		Dependencies: extractDeps(data.Info.RequiresDist),
		ProjectURLs:  urls,
		HomePage:     data.Info.HomePage,
	}
	return nil
}

// Search scrapes the PyPI search page for query and returns up to size hits.
// An optional classifier (e.g. "Framework :: AsyncIO") narrows results.
func (c *Client) Search(ctx context.Context, query, classifier string, size int, refresh bool) ([]SearchHit, error) {
	if size <= 0 {
		size = 50
	}
	key := fmt.Sprintf("search:%s:%s", query, classifier)

	var hits []SearchHit
	err := c.Cached(ctx, key, refresh, &hits, func() error {
		url := c.searchURL + "?q=" + registry.URLEncode(query)
		if classifier != "" {
			url += "&c=" + registry.URLEncode(classifier)
		}
		page, err := c.GetText(ctx, url)
		if err != nil {
			return err
		}
		hits = parseSearchPage(page, size)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func parseSearchPage(page string, limit int) []SearchHit {
	names := snippetNameRE.FindAllStringSubmatchIndex(page, -1)

	var hits []SearchHit
	seen := make(map[string]bool)
	for i, m := range names {
		name := registry.NormalizePkgName(html.UnescapeString(page[m[2]:m[3]]))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		// The description, if present, sits between this snippet's name and
		// the next snippet.
		end := len(page)
		if i+1 < len(names) {
			end = names[i+1][0]
		}
		hit := SearchHit{Name: name}
		if d := snippetDescRE.FindStringSubmatch(page[m[1]:end]); d != nil {
			hit.Description = strings.TrimSpace(html.UnescapeString(d[1]))
		}
		hits = append(hits, hit)
		if len(hits) >= limit {
			break
		}
	}
	return hits
}

func extractDeps(requires []string) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, req := range requires {
		if m := markerRE.FindStringSubmatch(req); len(m) > 1 && skipRE.MatchString(m[1]) {
			continue
		}
		if m := depRE.FindStringSubmatch(req); len(m) > 1 {
			dep := registry.NormalizePkgName(m[1])
			if !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	sep := ","
	if !strings.Contains(raw, ",") {
		sep = " "
	}
	var out []string
	for _, k := range strings.Split(raw, sep) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type apiResponse struct {
	Info apiInfo `json:"info"`
}

type apiInfo struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Summary      string         `json:"summary"`
	License      string         `json:"license"`
	Keywords     string         `json:"keywords"`
	Classifiers  []string       `json:"classifiers"`
	RequiresDist []string       `json:"requires_dist"`
	ProjectURLs  map[string]any `json:"project_urls"`
	HomePage     string         `json:"home_page"`
	Author       string         `json:"author"`
}

// extractLicenseType extracts a short license identifier from PyPI data.
// It prefers the classifier (e.g., "License :: OSI Approved :: MIT License" -> "MIT License")
// and falls back to the license field if it's short enough.
func extractLicenseType(license string, classifiers []string) string {
	for _, c := range classifiers {
		if strings.HasPrefix(c, "License :: ") {
			parts := strings.Split(c, " :: ")
			if len(parts) >= 3 {
				return parts[len(parts)-1]
			}
		}
	}

	if license != "" && len(license) < 100 && !strings.Contains(license, "\n") {
		return strings.TrimSpace(license)
	}

	if license != "" {
		firstLine := strings.TrimSpace(strings.Split(license, "\n")[0])
		if len(firstLine) < 50 {
			return firstLine
		}
	}

	return ""
}
