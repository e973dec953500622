package analyze

import (
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/registry"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

var defaultOfficialOwners = []string{
	"modelcontextprotocol",
	"anthropic",
	"anthropics",
}

// identifierScope returns the npm scope without the "@", or "".
func identifierScope(identifier string) string {
	if !strings.HasPrefix(identifier, "@") {
		return ""
	}
	if i := strings.Index(identifier, "/"); i > 1 {
		return identifier[1:i]
	}
	return ""
}

// repoOwner extracts the repository owner from the bundle, preferring the
// fetched repo record over URL parsing.
func repoOwner(b *scrape.Bundle) string {
	if b.Repo != nil && b.Repo.Owner != "" {
		return strings.ToLower(b.Repo.Owner)
	}
	url := b.Registry.RepositoryURL
	if url == "" {
		url = b.Candidate.RepositoryURL
	}
	if owner, _, ok := registry.ParseGitHubRepo(url); ok {
		return strings.ToLower(owner)
	}
	return ""
}

// displayBase derives the human name base from a package identifier:
// npm scope stripped, Go module path reduced to its last segment.
func displayBase(identifier string) string {
	s := identifier
	if strings.HasPrefix(s, "@") {
		if i := strings.Index(s, "/"); i > 0 {
			s = s[i+1:]
		}
	} else if strings.Contains(s, "/") {
		// Module paths: keep the last meaningful segment, skipping
		// major-version suffixes.
		parts := strings.Split(s, "/")
		last := parts[len(parts)-1]
		if len(last) >= 2 && last[0] == 'v' && isDigits(last[1:]) && len(parts) > 1 {
			last = parts[len(parts)-2]
		}
		s = last
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// titleCase renders an identifier base as a display name:
// "server-filesystem" -> "Server Filesystem".
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	for i, w := range words {
		if w == "mcp" || w == "api" || w == "sql" || w == "aws" || w == "iot" {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// identifierTokens splits an identifier on its separators, lowercased.
func identifierTokens(identifier string) []string {
	return strings.FieldsFunc(strings.ToLower(identifier), func(r rune) bool {
		return r == '@' || r == '/' || r == '-' || r == '_' || r == '.'
	})
}
