package analyze

import (
	"regexp"
	"strings"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/scrape"
)

// Tool extraction sources, descending authority. Live tools/list output is
// handled downstream by the normalizer; this file covers the documentation
// patterns and the identifier inference fallback.
var (
	headingParamsRE = regexp.MustCompile("(?m)^#{2,4}\\s+`?([A-Za-z_][A-Za-z0-9_]*)`?\\s*\\(([^)]*)\\)\\s*$")
	headingBareRE   = regexp.MustCompile("(?m)^#{2,4}\\s+`?([A-Za-z_][A-Za-z0-9_]*)`?\\s*$")
	listItemRE      = regexp.MustCompile("(?m)^\\s*[-*]\\s+\\*\\*`?([A-Za-z_][A-Za-z0-9_]*)`?\\*\\*\\s*[:–-]\\s*(.+)$")
	tableRowRE      = regexp.MustCompile("(?m)^\\s*\\|\\s*`?([A-Za-z_][A-Za-z0-9_]*)`?\\s*\\|\\s*([^|]+)\\|")
	paramsBlockRE   = regexp.MustCompile(`(?i)^\s*(?:\*\*)?parameters(?:\*\*)?\s*:`)
)

// toolStopwords are names too generic to be real tools.
var toolStopwords = map[string]bool{
	"get": true, "set": true, "is": true, "has": true, "can": true, "will": true,
}

// ExtractTools pulls tool definitions out of README and documentation text,
// falling back to identifier-based inference when the docs are silent.
func ExtractTools(b *scrape.Bundle) []model.Tool {
	text := b.CombinedText()

	tools := extractFromHeadings(text)
	tools = append(tools, extractFromLists(text)...)
	tools = append(tools, extractFromTables(text)...)
	tools = dedupTools(tools)

	if len(tools) == 0 {
		tools = inferFromIdentifier(b.Candidate.Identifier)
	}
	return tools
}

func extractFromHeadings(text string) []model.Tool {
	var tools []model.Tool

	for _, m := range headingParamsRE.FindAllStringSubmatch(text, -1) {
		if !validName(m[1]) {
			continue
		}
		t := model.Tool{Name: m[1]}
		if schema := parseParamList(m[2]); schema != nil {
			t.InputSchema = schema
		}
		tools = append(tools, t)
	}

	// Bare headings only count when followed by a Parameters: block; plain
	// section headers like "Installation" would otherwise slip through.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := headingBareRE.FindStringSubmatch(line)
		if m == nil || !validName(m[1]) {
			continue
		}
		if followedByParams(lines[i+1:]) {
			tools = append(tools, model.Tool{Name: m[1]})
		}
	}
	return tools
}

// followedByParams reports whether a Parameters: block starts within the
// next few non-blank lines.
func followedByParams(rest []string) bool {
	seen := 0
	for _, line := range rest {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if paramsBlockRE.MatchString(line) {
			return true
		}
		if seen++; seen >= 3 {
			return false
		}
	}
	return false
}

func extractFromLists(text string) []model.Tool {
	var tools []model.Tool
	for _, m := range listItemRE.FindAllStringSubmatch(text, -1) {
		if !validName(m[1]) {
			continue
		}
		tools = append(tools, model.Tool{
			Name:        m[1],
			Description: strings.TrimSpace(m[2]),
		})
	}
	return tools
}

func extractFromTables(text string) []model.Tool {
	var tools []model.Tool
	for _, m := range tableRowRE.FindAllStringSubmatch(text, -1) {
		name, desc := m[1], strings.TrimSpace(m[2])
		if !validName(name) {
			continue
		}
		// Header and separator rows are not tools.
		if strings.EqualFold(name, "tool") || strings.EqualFold(name, "name") || strings.HasPrefix(desc, "---") {
			continue
		}
		tools = append(tools, model.Tool{Name: name, Description: desc})
	}
	return tools
}

// validName applies the legality rules: pattern, length, stopwords.
func validName(name string) bool {
	return model.ValidToolName(name) && len(name) >= 3 && !toolStopwords[strings.ToLower(name)]
}

// parseParamList converts "path: string, recursive?: boolean" into a
// JSON-Schema-shaped map. Returns nil for empty lists.
func parseParamList(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	props := make(map[string]any)
	var required []string
	for _, part := range strings.Split(raw, ",") {
		name, typ, _ := strings.Cut(strings.TrimSpace(part), ":")
		name = strings.TrimSpace(name)
		optional := strings.HasSuffix(name, "?")
		name = strings.TrimSuffix(name, "?")
		if name == "" || !model.ValidToolName(name) {
			continue
		}
		props[name] = map[string]any{"type": NormalizeParamType(strings.TrimSpace(typ))}
		if !optional {
			required = append(required, name)
		}
	}
	if len(props) == 0 {
		return nil
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// NormalizeParamType maps free-form type labels onto the JSON-Schema core
// set. Unknown labels become "string".
func NormalizeParamType(t string) string {
	switch strings.ToLower(t) {
	case "number", "int", "integer", "float", "double":
		return "number"
	case "boolean", "bool":
		return "boolean"
	case "array", "list", "[]string", "string[]":
		return "array"
	case "object", "map", "dict", "record":
		return "object"
	default:
		return "string"
	}
}

// dedupTools collapses by lowercase name, keeping the entry with the richest
// description and richest schema.
func dedupTools(tools []model.Tool) []model.Tool {
	index := make(map[string]int)
	var out []model.Tool
	for _, t := range tools {
		key := strings.ToLower(t.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, t)
			continue
		}
		if len(t.Description) > len(out[i].Description) {
			out[i].Description = t.Description
		}
		if schemaSize(t.InputSchema) > schemaSize(out[i].InputSchema) {
			out[i].InputSchema = t.InputSchema
		}
	}
	return out
}

func schemaSize(schema map[string]any) int {
	props, _ := schema["properties"].(map[string]any)
	return len(props)
}

// inferenceTable maps identifier keywords to the tools such servers
// conventionally expose. Used only when no documentation source produced any.
var inferenceTable = []struct {
	keywords []string
	tools    []string
}{
	{[]string{"filesystem", "file"}, []string{"read_file", "write_file", "list_directory"}},
	{[]string{"database", "sql", "postgres", "mysql", "sqlite"}, []string{"execute_query", "list_tables", "describe_table"}},
	{[]string{"search", "fetch", "web"}, []string{"search", "fetch"}},
	{[]string{"git"}, []string{"git_status", "git_log", "git_diff"}},
	{[]string{"slack", "discord", "telegram"}, []string{"send_message", "list_channels"}},
	{[]string{"memory", "knowledge"}, []string{"store_memory", "recall_memory"}},
}

func inferFromIdentifier(identifier string) []model.Tool {
	lower := strings.ToLower(identifier)
	for _, entry := range inferenceTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				var tools []model.Tool
				for _, name := range entry.tools {
					tools = append(tools, model.Tool{Name: name})
				}
				return tools
			}
		}
	}
	return nil
}
