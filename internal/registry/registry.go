package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/buildforge/buildforge/internal/builderrors"
	"github.com/buildforge/buildforge/internal/graph"
	"github.com/buildforge/buildforge/internal/ident"
)

// Registry is a mapping from normalized target name to Target. It also
// owns the single-slot "pending description" side channel and enforces
// the DAG invariant on every edge insertion via internal/graph.
//
// Registry and its Graph are mutated only during registration, before Run
// is invoked; callers must not add edges concurrently with execution.
type Registry struct {
	mu                 sync.Mutex
	targets            map[string]*Target
	order              []string // normalized names, in registration order
	pendingDescription *string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{targets: make(map[string]*Target)}
}

// Describe sets the description to attach to the next target registered
// via Define. Fails if a description is already pending.
func (r *Registry) Describe(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pendingDescription != nil {
		return builderrors.Validation("describe: a pending description is already set; register a target before describing another")
	}
	r.pendingDescription = &text
	return nil
}

// Define creates a target named name running body, with the current
// pending description (if any) and an empty dependency list. Fails if a
// target with the same normalized name already exists. The pending
// description is cleared whether or not it was set.
func (r *Registry) Define(name string, body Body) (*Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := ident.Normalize(name)
	if _, exists := r.targets[normalized]; exists {
		return nil, builderrors.Validationf("target %q is already defined", name)
	}

	var description string
	if r.pendingDescription != nil {
		description = *r.pendingDescription
	}
	r.pendingDescription = nil

	t := &Target{
		name:           name,
		normalizedName: normalized,
		description:    description,
		body:           body,
	}
	r.targets[normalized] = t
	r.order = append(r.order, normalized)
	return t, nil
}

// Get performs a case-insensitive lookup. On a miss it returns a
// builderrors.NotFound error whose message enumerates every registered
// target name.
func (r *Registry) Get(name string) (*Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(name)
}

func (r *Registry) getLocked(name string) (*Target, error) {
	t, ok := r.targets[ident.Normalize(name)]
	if !ok {
		return nil, builderrors.NotFound("target", fmt.Sprintf("%s (known targets: %s)", name, strings.Join(r.namesLocked(), ", ")))
	}
	return t, nil
}

// Names returns every registered target's original-case display name, in
// registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.order))
	for _, n := range r.order {
		names = append(names, r.targets[n].name)
	}
	return names
}

// All returns every registered target, in registration order.
func (r *Registry) All() []*Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Target, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.targets[n])
	}
	return out
}

// HasPendingDescription reports whether Describe was called without a
// following Define to attach it to: a registration error at run time.
func (r *Registry) HasPendingDescription() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingDescription != nil
}

// Reset clears the registry, as if newly constructed.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = make(map[string]*Target)
	r.order = nil
	r.pendingDescription = nil
}

// DependOn appends dep to target's dependency list, after a cycle check
// rooted at dep. Both names are resolved through the registry; an
// unresolved dependency name surfaces the same NotFound error Get does.
func (r *Registry) DependOn(targetName, depName string) error {
	return r.addDependency(targetName, depName, false)
}

// DependOnFirst prepends dep to target's dependency list.
func (r *Registry) DependOnFirst(targetName, depName string) error {
	return r.addDependency(targetName, depName, true)
}

func (r *Registry) addDependency(targetName, depName string, prepend bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.getLocked(targetName)
	if err != nil {
		return err
	}
	dep, err := r.getLocked(depName)
	if err != nil {
		return err
	}

	if cycleErr := graph.CheckEdge(r, target.normalizedName, target.name, dep.normalizedName, dep.name); cycleErr != nil {
		return asRegistrationError(cycleErr)
	}

	if prepend {
		target.dependencies = append([]string{dep.name}, target.dependencies...)
	} else {
		target.dependencies = append(target.dependencies, dep.name)
	}
	return nil
}

// Dependencies implements graph.Resolver: it returns the normalized
// dependency names of a previously-registered node.
func (r *Registry) Dependencies(normalizedName string) ([]string, bool) {
	t, ok := r.targets[normalizedName]
	if !ok {
		return nil, false
	}
	deps := make([]string, len(t.dependencies))
	for i, d := range t.dependencies {
		deps[i] = ident.Normalize(d)
	}
	return deps, true
}

// asRegistrationError converts a graph-level error into the
// builderrors.BuildError registration-error shape.
func asRegistrationError(err error) error {
	switch e := err.(type) {
	case *graph.CycleError:
		return builderrors.Validationf("cyclic dependency between %s and %s", e.From, e.To)
	case *graph.UnresolvedError:
		return builderrors.NotFound("target", e.Name)
	default:
		return builderrors.Wrap(err, "dependency check failed")
	}
}

// SortedNormalizedNames returns every normalized target name in ascending
// order, for deterministic iteration instead of hash-table order.
func (r *Registry) SortedNormalizedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
