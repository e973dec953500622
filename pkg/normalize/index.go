package normalize

import (
	"time"

	"github.com/mcpscout/mcpcrawl/pkg/model"
	"github.com/mcpscout/mcpcrawl/pkg/registry"
)

// MatchKey says which dedup key matched an existing record.
type MatchKey string

const (
	MatchSlug        MatchKey = "slug"
	MatchIdentity    MatchKey = "identity"    // (ecosystem, identifier)
	MatchFingerprint MatchKey = "fingerprint" // repository URL + primary command
)

// MergeEvent is recorded when a candidate matched an existing record under a
// different slug. The crawler never rewrites slugs on its own; events queue
// up for operator review.
type MergeEvent struct {
	CandidateSlug string    `json:"candidate_slug"`
	ExistingSlug  string    `json:"existing_slug"`
	Via           MatchKey  `json:"via"`
	At            time.Time `json:"at"`
}

// Index is the tri-key dedup lookup over known records. Resolution is one
// step: a candidate maps to at most one existing slug, and merged-into
// chains are never followed.
type Index struct {
	bySlug        map[string]bool
	byIdentity    map[string]string // ecosystem/identifier -> slug
	byFingerprint map[string]string // repoURL|command -> slug
}

// NewIndex builds an index over the given records.
func NewIndex(records []*model.MCP) *Index {
	ix := &Index{
		bySlug:        make(map[string]bool, len(records)),
		byIdentity:    make(map[string]string, len(records)),
		byFingerprint: make(map[string]string, len(records)),
	}
	for _, m := range records {
		ix.Add(m)
	}
	return ix
}

// Add registers one record under all three keys.
func (ix *Index) Add(m *model.MCP) {
	ix.bySlug[m.Slug] = true
	ix.byIdentity[identityKey(m.Ecosystem, m.Identifier)] = m.Slug
	if fp := fingerprint(m.RepositoryURL, m.Endpoint); fp != "" {
		ix.byFingerprint[fp] = m.Slug
	}
}

// Find resolves a fresh record against the index, in key order: slug, then
// identity, then fingerprint.
func (ix *Index) Find(fresh *model.MCP) (slug string, via MatchKey, ok bool) {
	if ix.bySlug[fresh.Slug] {
		return fresh.Slug, MatchSlug, true
	}
	if s, ok := ix.byIdentity[identityKey(fresh.Ecosystem, fresh.Identifier)]; ok {
		return s, MatchIdentity, true
	}
	if fp := fingerprint(fresh.RepositoryURL, fresh.Endpoint); fp != "" {
		if s, ok := ix.byFingerprint[fp]; ok {
			return s, MatchFingerprint, true
		}
	}
	return "", "", false
}

func identityKey(eco model.Ecosystem, identifier string) string {
	return string(eco) + "/" + identifier
}

func fingerprint(repoURL, command string) string {
	repoURL = registry.NormalizeRepoURL(repoURL)
	if repoURL == "" || command == "" {
		return ""
	}
	return repoURL + "|" + command
}
