// Package goproxy provides access to the Go module proxy. The module index
// has no search surface, so Go discovery synthesizes module paths from
// GitHub search and uses this client to confirm they exist.
package goproxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

// ModuleInfo holds metadata for a Go module from the Go module proxy.
// Dependencies include only direct dependencies; "// indirect" lines are
// excluded. Pre-module packages may have no go.mod; Dependencies is nil then.
type ModuleInfo struct {
	Path         string
	Version      string
	PublishedAt  time.Time
	Dependencies []string
}

// Client provides access to the Go module proxy API.
// All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a Go module proxy client with the given fetcher and cache backend.
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(fetcher, backend, "goproxy:", cacheTTL, httputil.CategoryRegistry, nil),
		baseURL: "https://proxy.golang.org",
	}
}

// FetchModule retrieves metadata for a Go module from the module proxy.
//
// This performs two API calls: @latest for the version, then the .mod file
// for dependencies. go.mod fetch failures are silently ignored.
// Returns [registry.ErrNotFound] if the module doesn't exist.
func (c *Client) FetchModule(ctx context.Context, mod string, refresh bool) (*ModuleInfo, error) {
	mod = strings.TrimSpace(mod)
	key := mod

	var info ModuleInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, mod, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Exists reports whether mod is known to the module proxy.
func (c *Client) Exists(ctx context.Context, mod string) bool {
	_, err := c.FetchModule(ctx, mod, false)
	return err == nil
}

func (c *Client) fetch(ctx context.Context, mod string, info *ModuleInfo) error {
	version, published, err := c.fetchLatest(ctx, mod)
	if err != nil {
		return err
	}

	deps, err := c.fetchGoMod(ctx, mod, version)
	if err != nil {
		// Some modules don't have a go.mod, that's OK.
		deps = nil
	}

	*info = ModuleInfo{
		Path:         mod,
		Version:      version,
		PublishedAt:  published,
		Dependencies: deps,
	}
	return nil
}

func (c *Client) fetchLatest(ctx context.Context, mod string) (string, time.Time, error) {
	url := fmt.Sprintf("%s/%s/@latest", c.baseURL, escapePath(mod))

	var data latestResponse
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return "", time.Time{}, fmt.Errorf("%w: go module %s", err, mod)
		}
		return "", time.Time{}, err
	}
	return data.Version, data.Time, nil
}

func (c *Client) fetchGoMod(ctx context.Context, mod, version string) ([]string, error) {
	url := fmt.Sprintf("%s/%s/@v/%s.mod", c.baseURL, escapePath(mod), version)

	body, err := c.GetText(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseGoMod(strings.NewReader(body))
}

func parseGoMod(r io.Reader) ([]string, error) {
	var deps []string
	seen := make(map[string]bool)
	inRequire := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "require (") || line == "require(" {
			inRequire = true
			continue
		}
		if inRequire && line == ")" {
			inRequire = false
			continue
		}

		// Single-line require
		if strings.HasPrefix(line, "require ") && !strings.Contains(line, "(") {
			line = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		if dep := parseRequireLine(line); dep != "" && !seen[dep] {
			seen[dep] = true
			deps = append(deps, dep)
		}
	}

	return deps, scanner.Err()
}

func parseRequireLine(line string) string {
	// Skip indirect dependencies
	if strings.Contains(line, "// indirect") {
		return ""
	}

	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}

	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) >= 1 {
		// Strip quotes from old-style go.mod files
		return strings.Trim(fields[0], `"`)
	}
	return ""
}

// escapePath escapes a module path per the Go module proxy protocol:
// uppercase letters become "!<lowercase>".
func escapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type latestResponse struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}
