package analyze

import (
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

// categoryKeywords scores each category by keyword hits across the
// candidate's identifier, description, README, tools, and dependencies.
var categoryKeywords = map[model.Category][]string{
	model.CategoryDatabases:         {"database", "sql", "postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis", "query", "supabase"},
	model.CategoryPayments:          {"payment", "stripe", "paypal", "checkout", "invoice", "billing"},
	model.CategoryAITools:           {"llm", "openai", "embedding", "inference", "rag", "vector", "prompt", "huggingface"},
	model.CategoryDevelopmentTools:  {"filesystem", "code", "compiler", "debug", "git", "repository", "terminal", "shell", "lint", "ide"},
	model.CategoryCloudStorage:      {"s3", "gcs", "blob", "bucket", "drive", "dropbox", "storage"},
	model.CategoryMessaging:         {"slack", "discord", "telegram", "whatsapp", "sms", "chat", "message"},
	model.CategoryContentCreation:   {"markdown", "blog", "cms", "wordpress", "notion", "document", "writing"},
	model.CategoryMonitoring:        {"metrics", "grafana", "prometheus", "datadog", "sentry", "logging", "observability", "alert"},
	model.CategoryProjectManagement: {"jira", "linear", "asana", "trello", "ticket", "issue", "sprint", "kanban"},
	model.CategorySecurity:          {"security", "vulnerability", "cve", "scan", "secret", "firewall", "audit"},
	model.CategoryAutomation:        {"automation", "workflow", "zapier", "trigger", "scheduler", "cron"},
	model.CategorySocialMedia:       {"twitter", "mastodon", "linkedin", "instagram", "reddit", "social"},
	model.CategoryWebAPIs:           {"http", "rest", "graphql", "webhook", "scraping", "crawler", "browser"},
	model.CategoryProductivity:      {"calendar", "email", "gmail", "todo", "notes", "reminder"},
	model.CategoryInfrastructure:    {"kubernetes", "docker", "terraform", "aws", "azure", "gcp", "deploy", "devops", "cloud"},
	model.CategoryMediaProcessing:   {"image", "video", "audio", "ffmpeg", "transcode", "photo"},
	model.CategoryFinance:           {"finance", "stock", "crypto", "trading", "portfolio", "market"},
	model.CategoryCommunication:     {"voice", "call", "meeting", "zoom", "conference", "twilio"},
	model.CategoryResearch:          {"arxiv", "paper", "research", "pubmed", "citation", "academic"},
	model.CategoryIoT:               {"iot", "sensor", "mqtt", "home-assistant", "zigbee", "device"},
}

// categoryPriority breaks score ties: earlier wins. The order leans toward
// the shapes MCP servers most commonly take.
var categoryPriority = []model.Category{
	model.CategoryDevelopmentTools,
	model.CategoryDatabases,
	model.CategoryWebAPIs,
	model.CategoryAITools,
	model.CategoryInfrastructure,
	model.CategoryMessaging,
	model.CategoryProductivity,
	model.CategoryMonitoring,
	model.CategoryCloudStorage,
	model.CategoryAutomation,
	model.CategoryProjectManagement,
	model.CategoryContentCreation,
	model.CategorySecurity,
	model.CategoryPayments,
	model.CategoryFinance,
	model.CategoryCommunication,
	model.CategorySocialMedia,
	model.CategoryMediaProcessing,
	model.CategoryResearch,
	model.CategoryIoT,
}

// SelectCategory picks exactly one category from the fixed enum.
// development-tools is the sentinel when nothing scores.
func (an *Analyzer) SelectCategory(b *scrape.Bundle, tools []model.Tool) model.Category {
	// Alias hits from registry keywords/classifiers win outright; they are
	// declared intent, not inference.
	for _, kw := range append(append([]string{}, b.Registry.Keywords...), b.Registry.Classifiers...) {
		if cat, ok := an.cfg.CategoryAliases[strings.ToLower(kw)]; ok && cat.Valid() {
			return cat
		}
	}

	scores := make(map[model.Category]int)

	score := func(text string, weight int) {
		lower := strings.ToLower(text)
		for cat, keywords := range categoryKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					scores[cat] += weight
				}
			}
		}
	}

	score(b.Candidate.Identifier, 3)
	score(b.Registry.Description, 2)
	if b.Repo != nil {
		score(b.Repo.Readme, 1)
		score(strings.Join(b.Repo.Topics, " "), 2)
	}
	score(strings.Join(b.Registry.Dependencies, " "), 1)
	for _, t := range tools {
		score(t.Name, 1)
	}

	best := model.CategoryDevelopmentTools
	bestScore := 0
	for _, cat := range categoryPriority {
		if s := scores[cat]; s > bestScore {
			best, bestScore = cat, s
		}
	}
	return best
}
