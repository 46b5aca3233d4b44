// Package planner computes build orders from a root target: a linear
// sequential order or a level-partitioned parallel order.
package planner

import "github.com/buildforge/buildforge/internal/registry"

// lookup is the minimal registry surface the planner needs: resolving a
// target's dependencies by name. *registry.Registry satisfies it.
type lookup interface {
	Get(name string) (*registry.Target, error)
}

// Sequential performs a depth-first traversal starting from root: for
// each node, it descends into each dependency in list order, then emits
// the node itself; a node already emitted is skipped. The result is a
// linear sequence with root last.
func Sequential(r lookup, root string) ([]*registry.Target, error) {
	var order []*registry.Target
	emitted := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		t, err := r.Get(name)
		if err != nil {
			return err
		}
		if emitted[t.NormalizedName()] {
			return nil
		}
		// The emitted check happens on entry; emission itself happens only
		// after dependencies are visited, so a node always follows its deps.
		for _, dep := range t.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		if emitted[t.NormalizedName()] {
			// Reached only if t were its own transitive dependency, which
			// the registry's cycle check rules out; kept as a guard
			// against double emission.
			return nil
		}
		emitted[t.NormalizedName()] = true
		order = append(order, t)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// Level is one level of the parallel order: every target at the same
// maximum distance from the root. Targets preserves discovery order for
// determinism.
type Level struct {
	Distance int
	Targets  []*registry.Target
}

// Parallel computes, for every target reachable from root, its maximum
// distance (in edges) from root along any path, partitions targets into
// levels by that distance, and returns the levels ordered from deepest
// (run first) to root (run last). A target reachable at multiple depths
// is placed at its maximum depth only.
func Parallel(r lookup, root string) ([]Level, error) {
	depth := make(map[string]int)
	explored := make(map[string]int) // max depth at which we've already recursed into this node's deps
	order := make(map[string]int)    // discovery order, for stable within-level iteration
	next := 0

	var walk func(name string, d int) error
	walk = func(name string, d int) error {
		t, err := r.Get(name)
		if err != nil {
			return err
		}
		key := t.NormalizedName()
		if existing, seen := depth[key]; !seen || d > existing {
			depth[key] = d
		}
		if _, seen := order[key]; !seen {
			order[key] = next
			next++
		}

		// Re-descending from a node at a depth no greater than one we've
		// already explored from can't discover any new maximum depth for
		// its dependencies, so skip it: a node is re-descended only when
		// reached at a greater depth than before, instead of once for
		// every path through a diamond.
		if prior, seen := explored[key]; seen && d <= prior {
			return nil
		}
		explored[key] = d

		for _, dep := range t.Dependencies() {
			if err := walk(dep, d+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}

	byDepth := make(map[int][]string)
	maxDepth := 0
	for name, d := range depth {
		byDepth[d] = append(byDepth[d], name)
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([]Level, 0, maxDepth+1)
	for d := maxDepth; d >= 0; d-- {
		names := byDepth[d]
		if len(names) == 0 {
			continue
		}
		// Stable, deterministic within-level order (discovery order); only
		// the descending-distance ordering between levels is required, but
		// determinism within a level aids testing.
		sortByDiscovery(names, order)

		targets := make([]*registry.Target, 0, len(names))
		for _, n := range names {
			t, err := r.Get(n)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		levels = append(levels, Level{Distance: d, Targets: targets})
	}
	return levels, nil
}

func sortByDiscovery(names []string, order map[string]int) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && order[names[j-1]] > order[names[j]]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
