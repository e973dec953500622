package analyze

import (
	"fmt"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

const shortDescriptionLimit = 160

// boilerplateDescriptions are registry descriptions too generic to keep.
var boilerplateDescriptions = map[string]bool{
	"mcp server":                    true,
	"a mcp server":                  true,
	"an mcp server":                 true,
	"mcp":                           true,
	"model context protocol server": true,
	"model context protocol":        true,
}

// BuildDescriptions produces the long and short descriptions. The registry
// description wins when substantive; otherwise one is synthesized from the
// identifier and the tool inventory.
func BuildDescriptions(b *scrape.Bundle, tools []model.Tool) (long, short string) {
	long = strings.TrimSpace(b.Registry.Description)
	if len(long) <= 20 || isBoilerplate(long) {
		long = synthesizeDescription(b, tools)
	}
	return long, Truncate(long, shortDescriptionLimit)
}

func isBoilerplate(desc string) bool {
	return boilerplateDescriptions[strings.ToLower(strings.TrimSpace(strings.TrimRight(desc, ".")))]
}

func synthesizeDescription(b *scrape.Bundle, tools []model.Tool) string {
	name := titleCase(displayBase(b.Candidate.Identifier))
	s := fmt.Sprintf("%s is a Model Context Protocol server", name)
	if n := len(tools); n > 0 {
		s += fmt.Sprintf(" exposing %d %s", n, pluralize("tool", n))
		if sample := toolSample(tools, 3); sample != "" {
			s += " including " + sample
		}
	}
	return s + " for AI assistant integrations."
}

func toolSample(tools []model.Tool, n int) string {
	var names []string
	for _, t := range tools {
		names = append(names, t.Name)
		if len(names) >= n {
			break
		}
	}
	return strings.Join(names, ", ")
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Truncate shortens s to at most limit characters on a word boundary.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "..."
}
