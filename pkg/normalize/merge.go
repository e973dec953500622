package normalize

import (
	"reflect"
	"sort"
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

const maxMergedTags = 30

// Merge applies a fresh crawl result onto an existing record and reports
// whether anything substantive changed.
//
// Rules:
//   - operator-owned fields (per FieldSources) are never touched
//   - crawler-owned scalars: new value wins when non-empty and different
//   - tools: a verified live list replaces; an unverified documentation list
//     that is a subset of the existing list is discarded
//   - tags: union, re-sorted, capped
//   - use cases: replaced when the fresh list is non-empty
//   - CreatedAt never changes; UpdatedAt advances only on change
func Merge(existing, fresh *model.MCP, now time.Time) (*model.MCP, bool) {
	m := *existing
	changed := false

	setStr := func(field string, dst *string, val string) {
		if existing.OwnedByOperator(field) || val == "" || val == *dst {
			return
		}
		*dst = val
		changed = true
	}

	setStr("name", &m.Name, fresh.Name)
	setStr("display_name", &m.DisplayName, fresh.DisplayName)
	setStr("short_description", &m.ShortDescription, fresh.ShortDescription)
	setStr("long_description", &m.LongDescription, fresh.LongDescription)
	setStr("endpoint", &m.Endpoint, fresh.Endpoint)
	setStr("repository_url", &m.RepositoryURL, fresh.RepositoryURL)
	setStr("documentation_url", &m.DocumentationURL, fresh.DocumentationURL)
	setStr("homepage_url", &m.HomepageURL, fresh.HomepageURL)
	setStr("author", &m.Author, fresh.Author)
	setStr("company", &m.Company, fresh.Company)
	setStr("license", &m.License, fresh.License)
	setStr("protocol_version", &m.ProtocolVersion, fresh.ProtocolVersion)
	setStr("discovery_source", &m.DiscoverySource, fresh.DiscoverySource)

	if !existing.OwnedByOperator("category") && fresh.Category.Valid() && fresh.Category != m.Category {
		m.Category = fresh.Category
		changed = true
	}
	if !existing.OwnedByOperator("install_type") && fresh.InstallType != "" && fresh.InstallType != m.InstallType {
		m.InstallType = fresh.InstallType
		changed = true
	}
	if !existing.OwnedByOperator("connection_type") && fresh.ConnectionType != "" && fresh.ConnectionType != m.ConnectionType {
		m.ConnectionType = fresh.ConnectionType
		changed = true
	}
	if !existing.OwnedByOperator("installation_methods") && len(fresh.InstallMethods) > 0 &&
		!reflect.DeepEqual(fresh.InstallMethods, m.InstallMethods) {
		m.InstallMethods = fresh.InstallMethods
		changed = true
	}

	if !existing.OwnedByOperator("auth") && fresh.Auth.Required &&
		!reflect.DeepEqual(fresh.Auth, m.Auth) {
		m.Auth = fresh.Auth
		changed = true
	}

	if tools, ok := mergeTools(existing, fresh); ok && !reflect.DeepEqual(tools, m.Tools) {
		m.Tools = tools
		m.ToolCount = len(tools)
		changed = true
	}

	if !existing.OwnedByOperator("tags") {
		// The union re-sorts, so compare as sets: a rerun that brings the
		// same tags in a different order is not a change.
		if tags := unionTags(m.Tags, fresh.Tags); !sameStringSet(tags, m.Tags) {
			m.Tags = tags
			changed = true
		}
	}
	if !existing.OwnedByOperator("use_cases") && len(fresh.UseCases) > 0 &&
		!reflect.DeepEqual(fresh.UseCases, m.UseCases) {
		m.UseCases = fresh.UseCases
		changed = true
	}

	// Status fields reflect the latest observation.
	if fresh.HealthStatus != "" && fresh.HealthStatus != m.HealthStatus {
		m.HealthStatus = fresh.HealthStatus
		changed = true
	}
	if fresh.Verified != m.Verified {
		m.Verified = fresh.Verified
		changed = true
	}
	if !reflect.DeepEqual(fresh.WorkingTools, m.WorkingTools) {
		m.WorkingTools = fresh.WorkingTools
		m.FailingTools = fresh.FailingTools
		changed = true
	}

	// Bookkeeping timestamps advance on every crawl without counting as a
	// substantive change.
	m.LastScrapedAt = fresh.LastScrapedAt
	if fresh.LastValidatedAt != nil {
		m.LastValidatedAt = fresh.LastValidatedAt
	}
	m.CreatedAt = existing.CreatedAt
	if changed {
		m.UpdatedAt = now
	}
	return &m, changed
}

// mergeTools decides whether the fresh tool list should replace the
// existing one.
func mergeTools(existing, fresh *model.MCP) ([]model.Tool, bool) {
	if existing.OwnedByOperator("tools") || len(fresh.Tools) == 0 {
		return nil, false
	}
	// A verified list came from the live server; it always wins.
	if fresh.Verified {
		return fresh.Tools, true
	}
	// Unverified documentation lists never shrink a richer existing list.
	if isSubset(fresh.Tools, existing.Tools) {
		return nil, false
	}
	return fresh.Tools, true
}

func isSubset(sub, super []model.Tool) bool {
	names := make(map[string]bool, len(super))
	for _, t := range super {
		names[t.Name] = true
	}
	for _, t := range sub {
		if !names[t.Name] {
			return false
		}
	}
	return true
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

func unionTags(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	var out []string
	for _, tag := range append(append([]string{}, existing...), fresh...) {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	if len(out) > maxMergedTags {
		out = out[:maxMergedTags]
	}
	return out
}
