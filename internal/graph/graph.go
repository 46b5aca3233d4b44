// Package graph maintains the dependency edges between build targets as a
// DAG, rejecting any edge insertion that would introduce a cycle before
// the edge is stored.
//
// Each edge is checked incrementally at insertion time rather than
// validating the whole graph once via a full topological sort, so the DAG
// property holds continuously rather than only at a single checkpoint
// before execution.
package graph

import "fmt"

// Resolver looks up whether a node (by normalized name) currently exists
// and what its current dependency list is. The registry satisfies this;
// graph never holds target data itself, only the cycle-check algorithm.
type Resolver interface {
	// Dependencies returns the dependency list (normalized names) of a
	// previously-registered node, or ok=false if the node is unknown.
	Dependencies(normalizedName string) (deps []string, ok bool)
}

// CycleError is returned when inserting an edge would create a cycle.
// It names both endpoints.
type CycleError struct {
	From string
	To   string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency between %s and %s", e.From, e.To)
}

// UnresolvedError is returned when the cycle check cannot resolve a name
// encountered while walking the transitive dependency set.
type UnresolvedError struct {
	Name string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s", e.Name)
}

// CheckEdge walks the transitive dependencies of dep (resolving each name
// through r); if target's normalized name is reached, inserting the edge
// target -> dep would create a cycle, and a *CycleError naming both (in
// original display form) is returned. An unresolved name anywhere in the
// walk aborts the check with an *UnresolvedError.
//
// normalizedTarget and normalizedDep are the normalized (fold-compared)
// names; displayTarget and displayDep are the original-case names used
// only for the error message.
func CheckEdge(r Resolver, normalizedTarget, displayTarget, normalizedDep, displayDep string) error {
	if normalizedTarget == normalizedDep {
		return &CycleError{From: displayTarget, To: displayDep}
	}

	visited := make(map[string]bool)
	var walk func(name string) error
	walk = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		deps, ok := r.Dependencies(name)
		if !ok {
			return &UnresolvedError{Name: name}
		}

		for _, d := range deps {
			if d == normalizedTarget {
				return &CycleError{From: displayTarget, To: displayDep}
			}
			if err := walk(d); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(normalizedDep)
}
