// Package normalize turns analyzer output and a live-validation report into
// the canonical persisted record, merges reruns into existing records, and
// detects duplicates across slugs.
package normalize

import (
	"strings"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/analyze"
	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// Build constructs a fresh canonical record. intel may be nil when live
// validation was skipped entirely.
func Build(c model.Candidate, a *analyze.Analysis, intel *model.IntelligenceReport, now time.Time) *model.MCP {
	primary := a.PrimaryInstall()

	m := &model.MCP{
		Slug:             a.Slug,
		Name:             a.Name,
		DisplayName:      a.DisplayName,
		ShortDescription: a.ShortDescription,
		LongDescription:  a.LongDescription,
		Ecosystem:        c.Ecosystem,
		Identifier:       c.Identifier,
		InstallType:      primary.Kind,
		Endpoint:         primary.Command,
		InstallMethods:   a.InstallMethods,
		Tools:            legalTools(a.Tools),
		Auth:             a.Auth,
		ConnectionType:   a.ConnectionType,
		Category:         a.Category,
		Tags:             a.Tags,
		UseCases:         a.UseCases,
		RepositoryURL:    a.RepositoryURL,
		DocumentationURL: a.DocumentationURL,
		HomepageURL:      a.HomepageURL,
		Author:           a.Author,
		Company:          a.Company,
		License:          a.License,
		HealthStatus:     model.HealthUnknown,
		AutoDiscovered:   true,
		DiscoverySource:  c.DiscoveryMethod,
		CreatedAt:        now,
		UpdatedAt:        now,
		LastScrapedAt:    &now,
	}

	if intel != nil {
		m.HealthStatus = intel.Health
		m.Verified = intel.Verified()
		m.ProtocolVersion = intel.ProtocolVersion
		m.WorkingTools = intel.WorkingTools
		m.FailingTools = intel.FailingTools
		m.LastValidatedAt = &now

		// The live tools list is authoritative; documentation only
		// contributes descriptions and schemas the server didn't send.
		if intel.Verified() {
			m.Tools = mergeToolDocs(legalTools(intel.Tools), a.Tools)
		} else if len(intel.Tools) > 0 && len(m.Tools) == 0 {
			// Fallback blob tools are better than nothing.
			m.Tools = legalTools(intel.Tools)
		}

		if intel.AuthRequired && !m.Auth.Required {
			m.Auth.Required = true
			method := intel.GuessedAuthMethod
			if method == "" {
				method = model.AuthCustom
			}
			m.Auth.Methods = []model.AuthMethod{method}
			if len(m.Auth.RequiredEnv) == 0 {
				m.Auth.RequiredEnv = intel.GuessedEnv
			}
		}
	}

	m.ToolCount = len(m.Tools)
	return m
}

// legalTools drops tools whose names violate the identifier pattern. Live
// lists are recorded verbatim otherwise.
func legalTools(tools []model.Tool) []model.Tool {
	var out []model.Tool
	for _, t := range tools {
		if model.ValidToolName(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// mergeToolDocs fills gaps in the live tool list from the documentation
// list: descriptions and schemas for overlapping names. Live entries always
// win when both sides have a value.
func mergeToolDocs(live, docs []model.Tool) []model.Tool {
	byName := make(map[string]model.Tool, len(docs))
	for _, t := range docs {
		byName[strings.ToLower(t.Name)] = t
	}
	for i, t := range live {
		doc, ok := byName[strings.ToLower(t.Name)]
		if !ok {
			continue
		}
		if t.Description == "" {
			live[i].Description = doc.Description
		}
		if t.InputSchema == nil {
			live[i].InputSchema = doc.InputSchema
		}
	}
	return live
}
