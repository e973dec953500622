package analyze

import (
	"fmt"

	"github.com/mcpscout/mcpcrawl/pkg/model"
)

// BaseSlug derives a record's slug before collision resolution.
// Official packages use the bare identifier (scope stripped); community
// packages append the repository owner for disambiguation.
func BaseSlug(c model.Candidate, owner string, official bool) string {
	base := model.CleanSlug(displayBase(c.Identifier))
	if base == "" {
		base = model.CleanSlug(c.Identifier)
	}
	if official || owner == "" {
		return base
	}
	cleanOwner := model.CleanSlug(owner)
	if cleanOwner == "" || cleanOwner == base {
		return base
	}
	return base + "-" + cleanOwner
}

// SlugExists reports whether a slug is taken and, if so, by which
// (ecosystem, identifier).
type SlugExists func(slug string) (eco model.Ecosystem, identifier string, taken bool)

// ResolveSlug makes the slug unique: if the base slug is taken by a
// different (ecosystem, identifier), numeric suffixes -2, -3, ... are tried
// until a free one (or the candidate's own record) is found.
func ResolveSlug(base string, c model.Candidate, exists SlugExists) string {
	slug := base
	for n := 2; ; n++ {
		eco, id, taken := exists(slug)
		if !taken || (eco == c.Ecosystem && id == c.Identifier) {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
