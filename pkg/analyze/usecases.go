package analyze

import (
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

const (
	maxUseCases   = 8
	minUseCaseLen = 15
	maxUseCaseLen = 150
)

// serviceUseCases are templates keyed by identifier keywords, in match order.
var serviceUseCases = []struct {
	keyword string
	cases   []string
}{
	{"slack", []string{"Send automated notifications to team channels", "Summarize channel activity for standups"}},
	{"github", []string{"Review pull requests and surface open issues", "Automate repository housekeeping tasks"}},
	{"postgres", []string{"Run ad-hoc SQL queries against production replicas", "Inspect schemas while designing migrations"}},
	{"stripe", []string{"Look up payments and refunds during support conversations"}},
	{"filesystem", []string{"Read and edit project files from an AI session", "Organize directories with natural language commands"}},
	{"browser", []string{"Extract structured data from web pages", "Automate repetitive browsing workflows"}},
	{"jira", []string{"Create and triage tickets without leaving the editor"}},
	{"gmail", []string{"Draft and search email from an assistant session"}},
	{"hubspot", []string{"Query CRM contacts and deals conversationally"}},
	{"memory", []string{"Persist context between assistant conversations"}},
}

// toolVerbs turn tool names into readable sentences.
var toolVerbs = map[string]string{
	"read":    "Read",
	"write":   "Write",
	"list":    "List",
	"create":  "Create",
	"delete":  "Delete",
	"update":  "Update",
	"search":  "Search",
	"execute": "Execute",
	"send":    "Send",
	"fetch":   "Fetch",
	"query":   "Query",
	"get":     "Retrieve",
	"store":   "Store",
}

// GenerateUseCases produces up to eight human-readable sentences, ranked by
// specificity: identifier-specific templates first, then tool-derived
// sentences, then generic fills.
func GenerateUseCases(b *scrape.Bundle, tools []model.Tool) []string {
	var ranked []string

	lowerID := strings.ToLower(b.Candidate.Identifier)
	for _, entry := range serviceUseCases {
		if strings.Contains(lowerID, entry.keyword) {
			ranked = append(ranked, entry.cases...)
		}
	}

	for _, t := range tools {
		if s := toolSentence(t); s != "" {
			ranked = append(ranked, s)
		}
	}

	base := displayBase(b.Candidate.Identifier)
	ranked = append(ranked,
		"Connect "+base+" capabilities to AI assistant workflows",
		"Automate repetitive tasks through conversational commands",
	)

	var out []string
	seen := make(map[string]bool)
	for _, s := range ranked {
		if len(s) < minUseCaseLen || len(s) > maxUseCaseLen {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) >= maxUseCases {
			break
		}
	}
	return out
}

// toolSentence renders a tool as a short readable action.
func toolSentence(t model.Tool) string {
	if t.Description != "" {
		desc := strings.TrimRight(t.Description, ".")
		return upperFirst(desc) + " via the " + t.Name + " tool"
	}
	parts := strings.Split(strings.ToLower(t.Name), "_")
	verb, ok := toolVerbs[parts[0]]
	if !ok {
		return ""
	}
	rest := strings.Join(parts[1:], " ")
	if rest == "" {
		return ""
	}
	return verb + " " + rest + " through the MCP interface"
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
