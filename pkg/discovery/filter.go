package discovery

import (
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// FilterConfig holds the token lists the candidate filter matches against.
// The lists are data, not code: operators tune them in configuration.
type FilterConfig struct {
	// StrongTokens accept a candidate immediately and cannot be overridden
	// by exclusions.
	StrongTokens []string

	// SignalTokens and RoleTokens together form the heuristic positive:
	// a candidate matches when it carries at least one of each.
	SignalTokens []string
	RoleTokens   []string

	// Exclusions reject heuristic positives (but never strong ones).
	Exclusions []string

	// SDKs lists known MCP SDK identifiers per ecosystem; a direct
	// dependency on one is a strong positive.
	SDKs map[model.Ecosystem][]string
}

// DefaultFilterConfig returns the stock token lists.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		StrongTokens: []string{
			"mcp-server",
			"model context protocol",
			"model-context-protocol",
			"@modelcontextprotocol/",
		},
		SignalTokens: []string{"mcp", "claude", "anthropic"},
		RoleTokens:   []string{"server", "tool", "cli", "agent", "service", "bot"},
		Exclusions: []string{
			"framework",
			"boilerplate",
			"template",
			"starter",
			"tensorflow",
			"pytorch",
			"eslint",
			"webpack",
			"emoji",
		},
		SDKs: DefaultSeeds().SDKs,
	}
}

// Filter is the heuristic MCP-likelihood classifier. It runs before any
// expensive scraping; false positives cost a scrape, false negatives lose a
// candidate, so the token lists lean permissive.
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a Filter. Empty config fields fall back to the defaults.
func NewFilter(cfg FilterConfig) *Filter {
	def := DefaultFilterConfig()
	if len(cfg.StrongTokens) == 0 {
		cfg.StrongTokens = def.StrongTokens
	}
	if len(cfg.SignalTokens) == 0 {
		cfg.SignalTokens = def.SignalTokens
	}
	if len(cfg.RoleTokens) == 0 {
		cfg.RoleTokens = def.RoleTokens
	}
	if len(cfg.Exclusions) == 0 {
		cfg.Exclusions = def.Exclusions
	}
	if len(cfg.SDKs) == 0 {
		cfg.SDKs = def.SDKs
	}
	return &Filter{cfg: cfg}
}

// LikelyMCP reports whether the candidate is worth scraping. deps is the
// candidate's declared dependency list when already known; pass nil before
// the registry record has been fetched.
func (f *Filter) LikelyMCP(c model.Candidate, deps []string) bool {
	text := strings.ToLower(c.Identifier + " " + c.Description)

	for _, token := range f.cfg.StrongTokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	for _, sdk := range f.cfg.SDKs[c.Ecosystem] {
		for _, dep := range deps {
			if strings.EqualFold(dep, sdk) {
				return true
			}
		}
	}

	for _, excl := range f.cfg.Exclusions {
		if strings.Contains(text, excl) {
			return false
		}
	}

	return containsAny(text, f.cfg.SignalTokens) && containsAny(text, f.cfg.RoleTokens)
}

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
