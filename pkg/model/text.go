package model

import (
	"regexp"
	"strings"
)

var (
	kebabBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	kebabInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
)

// KebabCase converts free text or camelCase identifiers to kebab-case,
// e.g. "relatesTo" -> "relates-to", "Is X good?" -> "is-x-good".
func KebabCase(s string) string {
	s = kebabBoundary.ReplaceAllString(s, "${1}-${2}")
	s = kebabInvalid.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// Summary returns the first line of the node text, or the ID if empty.
func (n *Node) Summary() string {
	line, _, _ := strings.Cut(strings.TrimSpace(n.Text), "\n")
	if line == "" {
		return n.ID
	}
	return line
}
