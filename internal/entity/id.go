package entity

import (
	"regexp"
	"strings"
)

// IDScheme prefixes every entity id.
const IDScheme = "urn:ttrpg:"

// unnamedSlug replaces names that slugify to nothing.
const unnamedSlug = "unnamed"

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	disallowedRune = regexp.MustCompile(`[^a-z0-9 _/-]+`)
	underscoreRun  = regexp.MustCompile(`_+`)
)

// Slugify normalises a display name into the slug used inside ids.
//
// The name is lower-cased and trimmed, whitespace runs collapse to a single
// space, apostrophes are dropped along with anything outside [a-z0-9 _/-],
// slashes, hyphens and spaces become underscores, underscore runs collapse,
// and leading/trailing underscores are trimmed. An empty result becomes
// "unnamed".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "'", "")
	s = disallowedRune.ReplaceAllString(s, "")
	s = strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(s)
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return unnamedSlug
	}
	return s
}

// NewID derives the stable identifier for an entity of kind k named name.
// Identical (kind, name) pairs always produce identical ids, and names that
// differ only in case, whitespace or punctuation collapse to the same id.
func NewID(k Kind, name string) string {
	return IDScheme + k.Token() + ":" + Slugify(name)
}
