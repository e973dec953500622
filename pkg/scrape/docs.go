package scrape

import (
	"context"
	"regexp"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/httputil"
)

// DefaultDocBudget caps how many documentation URLs one candidate may cost.
const DefaultDocBudget = 4

var (
	titleRE  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptRE = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRE    = regexp.MustCompile(`(?s)<[^>]*>`)
	hrefRE   = regexp.MustCompile(`href="(https?://[^"]+)"`)
	spaceRE  = regexp.MustCompile(`[ \t]+`)
	blankRE  = regexp.MustCompile(`\n{3,}`)
)

// DocFetcher downloads documentation pages within a per-candidate budget.
type DocFetcher struct {
	fetcher *httputil.Fetcher
	budget  int
}

// NewDocFetcher creates a DocFetcher. budget <= 0 selects DefaultDocBudget.
func NewDocFetcher(fetcher *httputil.Fetcher, budget int) *DocFetcher {
	if budget <= 0 {
		budget = DefaultDocBudget
	}
	return &DocFetcher{fetcher: fetcher, budget: budget}
}

// FetchDocs fetches up to the budget's worth of distinct URLs. Individual
// failures are skipped; pages that strip down to nothing are dropped.
func (d *DocFetcher) FetchDocs(ctx context.Context, urls []string) []DocPage {
	var pages []DocPage
	seen := make(map[string]bool)
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		if len(pages) >= d.budget {
			break
		}
		if ctx.Err() != nil {
			break
		}
		resp, err := d.fetcher.Fetch(ctx, httputil.Request{
			URL:      u,
			Category: httputil.CategoryDocSite,
		})
		if err != nil {
			continue
		}
		page := htmlToPage(u, string(resp.Body))
		if page.WordCount == 0 {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// htmlToPage strips an HTML document down to readable text.
func htmlToPage(url, raw string) DocPage {
	page := DocPage{URL: url}

	if m := titleRE.FindStringSubmatch(raw); m != nil {
		page.Title = strings.TrimSpace(tagRE.ReplaceAllString(m[1], ""))
	}
	for _, m := range hrefRE.FindAllStringSubmatch(raw, -1) {
		page.Links = append(page.Links, m[1])
	}

	text := scriptRE.ReplaceAllString(raw, " ")
	text = tagRE.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)
	text = spaceRE.ReplaceAllString(text, " ")
	text = blankRE.ReplaceAllString(text, "\n\n")
	page.Text = strings.TrimSpace(text)
	page.WordCount = len(strings.Fields(page.Text))
	return page
}
