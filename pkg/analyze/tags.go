package analyze

import (
	"maps"
	"slices"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

const (
	minTags = 20
	maxTags = 30
)

// serviceExpansions add domain tags when a service name appears in the
// identifier or keywords.
var serviceExpansions = map[string][]string{
	"stripe":     {"payments", "billing", "transactions"},
	"slack":      {"messaging", "notifications", "team-chat"},
	"discord":    {"messaging", "communities", "chat-bots"},
	"github":     {"git", "version-control", "repositories"},
	"gitlab":     {"git", "version-control", "ci-cd"},
	"postgres":   {"postgresql", "sql", "database"},
	"mysql":      {"sql", "database"},
	"sqlite":     {"sql", "database", "embedded"},
	"mongodb":    {"nosql", "database", "documents"},
	"redis":      {"cache", "key-value", "database"},
	"aws":        {"cloud", "amazon-web-services", "infrastructure"},
	"kubernetes": {"containers", "orchestration", "devops"},
	"docker":     {"containers", "devops"},
	"notion":     {"notes", "knowledge-base", "productivity"},
	"jira":       {"issue-tracking", "project-management", "agile"},
	"grafana":    {"dashboards", "monitoring", "observability"},
	"gmail":      {"email", "productivity"},
	"filesystem": {"files", "storage", "local"},
	"browser":    {"web", "scraping", "automation"},
	"hubspot":    {"crm", "sales", "marketing"},
}

// techExpansions map dependency names to technology tags.
var techExpansions = map[string][]string{
	"express":    {"express", "http"},
	"fastapi":    {"fastapi", "http"},
	"axios":      {"http"},
	"pg":         {"postgresql", "sql"},
	"psycopg2":   {"postgresql", "sql"},
	"redis":      {"redis", "cache"},
	"puppeteer":  {"browser-automation", "headless"},
	"playwright": {"browser-automation", "headless"},
	"tokio":      {"async"},
}

// capabilityVerbs become capability tags when a tool name starts with one.
var capabilityVerbs = []string{"create", "read", "update", "delete", "search", "list", "execute", "sync"}

// fallbackTags fill the floor, in rank order, when a candidate yields too
// few organic tags.
var fallbackTags = []string{
	"integration", "automation", "api", "ai-assistant", "llm", "agent-tools",
	"data-access", "workflow", "productivity", "developer-tools", "json-rpc",
	"stdio", "open-source", "connector", "tooling", "context", "assistant",
	"protocol", "extension", "plugin",
}

// GenerateTags produces between minTags and maxTags lowercase hyphenated
// tokens. The floor is guaranteed by the ranked fallback list.
func GenerateTags(b *scrape.Bundle, tools []model.Tool) []string {
	var raw []string

	// Fixed baseline first so the most meaningful tags survive the cap.
	raw = append(raw, "mcp", "model-context-protocol", string(b.Candidate.Ecosystem))

	idTokens := identifierTokens(b.Candidate.Identifier)
	raw = append(raw, idTokens...)
	raw = append(raw, b.Registry.Keywords...)
	if b.Repo != nil {
		raw = append(raw, b.Repo.Topics...)
	}

	lowerID := strings.ToLower(b.Candidate.Identifier + " " + strings.Join(b.Registry.Keywords, " "))
	for _, service := range slices.Sorted(maps.Keys(serviceExpansions)) {
		if strings.Contains(lowerID, service) {
			raw = append(raw, service)
			raw = append(raw, serviceExpansions[service]...)
		}
	}

	for _, t := range tools {
		lower := strings.ToLower(t.Name)
		for _, verb := range capabilityVerbs {
			if strings.HasPrefix(lower, verb) {
				raw = append(raw, verb)
				break
			}
		}
	}

	for _, dep := range b.Registry.Dependencies {
		if tags, ok := techExpansions[strings.ToLower(dep)]; ok {
			raw = append(raw, tags...)
		}
	}

	tags := cleanTags(raw)
	for _, fb := range fallbackTags {
		if len(tags) >= minTags {
			break
		}
		tags = appendUnique(tags, fb)
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// cleanTags normalizes to slug form, drops empties and single characters,
// and deduplicates preserving order.
func cleanTags(raw []string) []string {
	var out []string
	for _, tag := range raw {
		cleaned := model.CleanSlug(tag)
		if len(cleaned) < 2 {
			continue
		}
		out = appendUnique(out, cleaned)
	}
	return out
}

func appendUnique(tags []string, tag string) []string {
	for _, have := range tags {
		if have == tag {
			return tags
		}
	}
	return append(tags, tag)
}
