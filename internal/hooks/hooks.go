// Package hooks registers and dispatches the two lifecycle target
// classes: build-failure targets (run only if the main run recorded an
// error, and only if activated) and final targets (run after every main
// run, regardless of outcome, and only if activated).
package hooks

import (
	"context"
	"sort"
	"sync"

	"github.com/buildforge/buildforge/internal/builderrors"
	"github.com/buildforge/buildforge/internal/engine"
	"github.com/buildforge/buildforge/internal/ident"
	"github.com/buildforge/buildforge/internal/registry"
)

// Kind selects which lifecycle table an Activate call targets.
type Kind int

const (
	BuildFailure Kind = iota
	Final
)

func (k Kind) String() string {
	if k == Final {
		return "final"
	}
	return "build-failure"
}

// Hooks tracks the two lifecycle registries (normalizedName -> activated).
// Entries are also registered as ordinary targets in the backing Registry
// with the same body, so they can be run through the same
// engine.RunSingleTarget path.
type Hooks struct {
	reg *registry.Registry

	mu           sync.Mutex
	buildFailure map[string]bool
	final        map[string]bool
}

// New creates a Hooks bound to reg.
func New(reg *registry.Registry) *Hooks {
	return &Hooks{
		reg:          reg,
		buildFailure: make(map[string]bool),
		final:        make(map[string]bool),
	}
}

// RegisterBuildFailureTarget registers name as a normal target running
// body and inserts (normalizedName, false) into the build-failure table.
func (h *Hooks) RegisterBuildFailureTarget(name string, body registry.Body) error {
	if _, err := h.reg.Define(name, body); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buildFailure[ident.Normalize(name)] = false
	return nil
}

// RegisterFinalTarget is the symmetric operation for final targets.
func (h *Hooks) RegisterFinalTarget(name string, body registry.Body) error {
	if _, err := h.reg.Define(name, body); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.final[ident.Normalize(name)] = false
	return nil
}

// Activate flips the activation flag for a previously-registered hook of
// the given kind. Fails if no such hook was registered.
func (h *Hooks) Activate(kind Kind, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := h.tableFor(kind)
	normalized := ident.Normalize(name)
	if _, ok := table[normalized]; !ok {
		return builderrors.Validationf("%s hook %q was not registered", kind, name)
	}
	table[normalized] = true
	return nil
}

func (h *Hooks) tableFor(kind Kind) map[string]bool {
	if kind == Final {
		return h.final
	}
	return h.buildFailure
}

// activatedNames returns the activated entries of the given kind's table,
// in ascending normalized-name order, for deterministic dispatch.
func (h *Hooks) activatedNames(kind Kind) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := h.tableFor(kind)
	names := make([]string, 0, len(table))
	for name, activated := range table {
		if activated {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RunAfter runs the lifecycle hooks after the main run: activated
// build-failure hooks only if hadErrors, then unconditionally every
// activated final hook — both with the engine's fail-fast short-circuit
// disabled, since hooks must run even after a failed build. Failures
// inside a hook append to the engine's error list and are reported like
// any other target failure; they never prevent other hooks from running.
func (h *Hooks) RunAfter(ctx context.Context, e *engine.Engine, hadErrors bool) {
	if hadErrors {
		h.runAll(ctx, e, BuildFailure)
	}
	h.runAll(ctx, e, Final)
}

func (h *Hooks) runAll(ctx context.Context, e *engine.Engine, kind Kind) {
	for _, normalized := range h.activatedNames(kind) {
		t, err := h.reg.Get(normalized)
		if err != nil {
			// Unreachable in practice: the hook was registered through
			// h.reg.Define, and nothing clears the registry mid-run.
			continue
		}
		e.RunSingleTarget(ctx, t, true)
	}
}
