// Package github provides access to the GitHub API for repository metadata,
// README content, and the topic search that backs Go-ecosystem discovery.
package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/cache"
	"github.com/mcpscout/mcpcrawl/pkg/httputil"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

// RepoInfo holds repository-level data fetched from GitHub.
type RepoInfo struct {
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Description   string     `json:"description,omitempty"`
	DefaultBranch string     `json:"default_branch,omitempty"`
	Stars         int        `json:"stars"`
	Forks         int        `json:"forks"`
	Topics        []string   `json:"topics,omitempty"`
	Language      string     `json:"language,omitempty"`
	License       string     `json:"license,omitempty"` // SPDX identifier
	Archived      bool       `json:"archived"`
	HomePage      string     `json:"homepage,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PushedAt      *time.Time `json:"pushed_at,omitempty"`
}

// SearchHit is one repository from the GitHub search API.
type SearchHit struct {
	Owner       string
	Name        string
	FullName    string
	Description string
	Language    string
	Stars       int
	Topics      []string
	Archived    bool
}

// Client provides access to the GitHub API with caching and optional
// authentication. All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty string for token to use unauthenticated requests
// (much lower rate limits).
func NewClient(fetcher *httputil.Fetcher, backend cache.Cache, token string, cacheTTL time.Duration) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return &Client{
		Client:  registry.NewClient(fetcher, backend, "github:", cacheTTL, httputil.CategoryRepoAPI, headers),
		baseURL: "https://api.github.com",
	}
}

// FetchRepo retrieves repository metadata. If refresh is true, cached data
// is bypassed. Returns [registry.ErrNotFound] for missing repositories.
func (c *Client) FetchRepo(ctx context.Context, owner, repo string, refresh bool) (*RepoInfo, error) {
	key := "repo:" + owner + "/" + repo

	var info RepoInfo
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetchRepo(ctx, owner, repo, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetchRepo(ctx context.Context, owner, repo string, info *RepoInfo) error {
	var data repoResponse
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: github repo %s/%s", err, owner, repo)
		}
		return err
	}

	*info = RepoInfo{
		Owner:         data.Owner.Login,
		Name:          data.Name,
		FullName:      data.FullName,
		Description:   data.Description,
		DefaultBranch: data.DefaultBranch,
		Stars:         data.Stars,
		Forks:         data.Forks,
		Topics:        data.Topics,
		Language:      data.Language,
		License:       data.License.SPDXID,
		Archived:      data.Archived,
		HomePage:      data.Homepage,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
		PushedAt:      data.PushedAt,
	}
	return nil
}

// FetchReadme retrieves the repository README as raw text.
// Returns [registry.ErrNotFound] if the repository has no README.
func (c *Client) FetchReadme(ctx context.Context, owner, repo string, refresh bool) (string, error) {
	key := "readme:" + owner + "/" + repo

	var readme string
	err := c.Cached(ctx, key, refresh, &readme, func() error {
		url := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, repo)
		body, err := c.doRaw(ctx, url)
		if err != nil {
			return err
		}
		readme = body
		return nil
	})
	if err != nil {
		return "", err
	}
	return readme, nil
}

func (c *Client) doRaw(ctx context.Context, url string) (string, error) {
	// The raw media type skips base64 decoding of the contents API.
	body, err := c.GetTextWithHeaders(ctx, url, map[string]string{"Accept": "application/vnd.github.raw"})
	if err != nil {
		return "", err
	}
	return body, nil
}

// SearchRepos queries the repository search API. The query uses GitHub
// search syntax, e.g. "topic:mcp language:go".
func (c *Client) SearchRepos(ctx context.Context, query string, size int, refresh bool) ([]SearchHit, error) {
	if size <= 0 {
		size = 50
	}
	key := fmt.Sprintf("search:%s:%d", query, size)

	var hits []SearchHit
	err := c.Cached(ctx, key, refresh, &hits, func() error {
		url := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d", c.baseURL, registry.URLEncode(query), size)

		var data searchResponse
		if err := c.Get(ctx, url, &data); err != nil {
			return err
		}
		hits = hits[:0]
		for _, item := range data.Items {
			hits = append(hits, SearchHit{
				Owner:       item.Owner.Login,
				Name:        item.Name,
				FullName:    item.FullName,
				Description: item.Description,
				Language:    item.Language,
				Stars:       item.Stars,
				Topics:      item.Topics,
				Archived:    item.Archived,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

type repoResponse struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
	Stars    int        `json:"stargazers_count"`
	Forks    int        `json:"forks_count"`
	PushedAt *time.Time `json:"pushed_at"`
	License  struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Language  string    `json:"language"`
	Topics    []string  `json:"topics"`
	Archived  bool      `json:"archived"`
	Homepage  string    `json:"homepage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type searchResponse struct {
	Items []struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Owner    struct {
			Login string `json:"login"`
		} `json:"owner"`
		Description string   `json:"description"`
		Language    string   `json:"language"`
		Stars       int      `json:"stargazers_count"`
		Topics      []string `json:"topics"`
		Archived    bool     `json:"archived"`
	} `json:"items"`
}
