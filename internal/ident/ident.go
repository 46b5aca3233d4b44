// Package ident provides the name-normalization rule the registry and
// graph use to compare target names case-insensitively.
//
// ASCII names fold the way strings.ToLower would. Non-ASCII names are
// permitted but must be compared by a deterministic, locale-independent
// fold; golang.org/x/text/cases.Fold provides that fold.
package ident

import (
	"golang.org/x/text/cases"
)

// folder is shared across calls: cases.Caser is safe for concurrent use
// once constructed, and construction allocates, so build it once.
var folder = cases.Fold()

// Normalize returns the deterministic fold of name used as a registry key.
// The original-case name is preserved separately wherever it is displayed.
func Normalize(name string) string {
	return folder.String(name)
}

// Equal reports whether two names are equal under normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
