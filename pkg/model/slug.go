package model

import (
	"regexp"
	"strings"
)

var (
	slugIllegalRE  = regexp.MustCompile(`[^a-z0-9-]+`)
	slugCollapseRE = regexp.MustCompile(`-{2,}`)
)

// CleanSlug normalizes s into slug form: lowercase, anything outside
// [a-z0-9-] replaced with '-', runs of '-' collapsed, edges trimmed.
// CleanSlug is idempotent: CleanSlug(CleanSlug(s)) == CleanSlug(s).
func CleanSlug(s string) string {
	s = strings.ToLower(s)
	s = slugIllegalRE.ReplaceAllString(s, "-")
	s = slugCollapseRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is already in clean slug form and non-empty.
func ValidSlug(s string) bool {
	return s != "" && CleanSlug(s) == s
}
