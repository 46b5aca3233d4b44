package planner

import (
	"context"
	"testing"

	"github.com/buildforge/buildforge/internal/registry"
)

func names(ts []*registry.Target) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name()
	}
	return out
}

// linearChain builds A <- B <- C (C depends on B depends on A).
func linearChain(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	mustDefine(t, r, "A")
	mustDefine(t, r, "B")
	mustDefine(t, r, "C")
	if err := r.DependOn("B", "A"); err != nil {
		t.Fatal(err)
	}
	if err := r.DependOn("C", "B"); err != nil {
		t.Fatal(err)
	}
	return r
}

// diamond builds A <- B, A <- C, B <- D, C <- D (D depends on B and C,
// both depend on A).
func diamond(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, n := range []string{"A", "B", "C", "D"} {
		mustDefine(t, r, n)
	}
	must(t, r.DependOn("B", "A"))
	must(t, r.DependOn("C", "A"))
	must(t, r.DependOn("D", "B"))
	must(t, r.DependOn("D", "C"))
	return r
}

func mustDefine(t *testing.T, r *registry.Registry, name string) {
	t.Helper()
	if _, err := r.Define(name, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestSequential_LinearChain(t *testing.T) {
	r := linearChain(t)
	order, err := Sequential(r, "C")
	if err != nil {
		t.Fatalf("Sequential() error = %v", err)
	}
	got := names(order)
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}

func TestSequential_DiamondRunsSharedDepOnce(t *testing.T) {
	r := diamond(t)
	order, err := Sequential(r, "D")
	if err != nil {
		t.Fatalf("Sequential() error = %v", err)
	}
	got := names(order)
	if len(got) != 4 {
		t.Fatalf("order = %v, want 4 distinct entries", got)
	}
	if got[len(got)-1] != "D" {
		t.Errorf("last entry = %q, want D", got[len(got)-1])
	}
	if got[0] != "A" {
		t.Errorf("first entry = %q, want A (shared ancestor)", got[0])
	}
}

func TestParallel_Diamond(t *testing.T) {
	r := diamond(t)
	levels, err := Parallel(r, "D")
	if err != nil {
		t.Fatalf("Parallel() error = %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("len(levels) = %d, want 3", len(levels))
	}

	// Deepest first: {A}, {B, C}, {D}.
	if got := names(levels[0].Targets); len(got) != 1 || got[0] != "A" {
		t.Errorf("levels[0] = %v, want [A]", got)
	}
	mid := names(levels[1].Targets)
	if len(mid) != 2 {
		t.Fatalf("levels[1] = %v, want 2 entries", mid)
	}
	if got := names(levels[2].Targets); len(got) != 1 || got[0] != "D" {
		t.Errorf("levels[2] = %v, want [D]", got)
	}
}

func TestParallel_DistanceStrictlyDecreasesTowardRoot(t *testing.T) {
	r := diamond(t)
	levels, err := Parallel(r, "D")
	if err != nil {
		t.Fatalf("Parallel() error = %v", err)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Distance >= levels[i-1].Distance {
			t.Errorf("levels[%d].Distance = %d, want strictly less than levels[%d].Distance = %d",
				i, levels[i].Distance, i-1, levels[i-1].Distance)
		}
	}
}

func TestSequential_MissingTarget(t *testing.T) {
	r := registry.New()
	if _, err := Sequential(r, "missing"); err == nil {
		t.Fatal("Sequential() with unregistered root = nil error, want error")
	}
}
