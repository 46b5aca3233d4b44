// Package registry stores named build targets keyed by case-insensitive
// name and provides the dependency-edge insertion operations.
package registry

import "context"

// Body is a zero-argument, no-result effectful action: the target's work.
// It receives a context so long-running bodies can observe cancellation,
// even though the engine itself never cancels a running body.
type Body func(ctx context.Context) error

// Target is a named, parameter-free unit of work with a body and an
// ordered list of dependency names.
type Target struct {
	name           string // Original case, preserved for display.
	normalizedName string
	description    string
	dependencies   []string // Original-case dependency names, in insertion order.
	body           Body
}

// Name returns the target's display name (original case preserved).
func (t *Target) Name() string { return t.name }

// NormalizedName returns the case-folded name used as the registry key.
func (t *Target) NormalizedName() string { return t.normalizedName }

// Description returns the target's description, or "" if none was set.
func (t *Target) Description() string { return t.description }

// Dependencies returns the target's dependency names in list order
// (original case, as they were added).
func (t *Target) Dependencies() []string {
	out := make([]string, len(t.dependencies))
	copy(out, t.dependencies)
	return out
}

// Body returns the target's body.
func (t *Target) Body() Body { return t.body }
