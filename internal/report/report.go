package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/buildforge/buildforge/internal/engine"
	"github.com/buildforge/buildforge/internal/planner"
	"github.com/buildforge/buildforge/internal/registry"
)

// targetLister is the registry surface ListTargets and PrintDependencyGraph
// need. *registry.Registry satisfies it.
type targetLister interface {
	All() []*registry.Target
	Get(name string) (*registry.Target, error)
}

// ListTargets prints every registered target's name and description,
// sorted alphabetically by display name.
func (w *Writer) ListTargets(reg targetLister) {
	all := reg.All()
	names := make([]string, len(all))
	byName := make(map[string]*registry.Target, len(all))
	for i, t := range all {
		names[i] = t.Name()
		byName[t.Name()] = t
	}
	sort.Strings(names)

	w.TraceHeader("Targets")
	for _, name := range names {
		t := byName[name]
		if t.Description() != "" {
			w.Println("  %-24s %s", w.styled(bold, t.Name()), t.Description())
		} else {
			w.Println("  %s", w.styled(bold, t.Name()))
		}
	}
}

// PrintDependencyGraph renders the dependency tree rooted at root as
// depth-indented lines, each child line reading "parent <== dependency"
// (the dependency is named after the arrow). In non-verbose mode a node
// already printed once is not expanded again, only named; in verbose mode
// every path is expanded in full, diamonds included. In both modes the
// tree is followed by the linearized sequential order.
func (w *Writer) PrintDependencyGraph(verbose bool, root string, reg targetLister) error {
	w.TraceHeader("Dependency graph")

	printed := make(map[string]bool)
	var walk func(name string, depth int, parent string)
	walk = func(name string, depth int, parent string) {
		t, err := reg.Get(name)
		if err != nil {
			w.Println("%s%s (unresolved)", indent(depth), name)
			return
		}
		line := indent(depth)
		if parent != "" {
			line += fmt.Sprintf("%s <== %s", parent, t.Name())
		} else {
			line += t.Name()
		}
		alreadyShown := printed[t.NormalizedName()]
		w.Println("%s", line)
		if !verbose && alreadyShown {
			return
		}
		printed[t.NormalizedName()] = true
		for _, dep := range t.Dependencies() {
			walk(dep, depth+1, t.Name())
		}
	}
	walk(root, 0, "")

	order, err := planner.Sequential(reg, root)
	if err != nil {
		return err
	}
	w.Println("")
	w.Println("%s", w.styled(bold, "Sequential order:"))
	for i, t := range order {
		w.Println("  %d. %s", i+1, t.Name())
	}
	return nil
}

func indent(depth int) string {
	out := ""
	for i := 0; i < depth; i++ {
		out += "  "
	}
	return out
}

// WriteTaskTimeSummary prints an aligned per-target timing table followed
// by a total row and a final status line: "Ok" if no errors were
// recorded, "Failure" plus a numbered list of every recorded error
// otherwise.
func (w *Writer) WriteTaskTimeSummary(timings []engine.TimingRecord, errs []engine.ErrorRecord, total time.Duration) {
	w.TraceHeader("Build time summary")

	nameWidth := 8
	for _, tr := range timings {
		if len(tr.NormalizedName) > nameWidth {
			nameWidth = len(tr.NormalizedName)
		}
	}

	for _, tr := range timings {
		w.Println("  %-*s %s", nameWidth, tr.NormalizedName, tr.Elapsed.Round(time.Millisecond))
	}
	w.Println("  %-*s %s", nameWidth, "Total", total.Round(time.Millisecond))
	w.Println("")

	if len(errs) == 0 {
		w.Println("%s", w.styled(green+bold, "Status: Ok"))
		return
	}

	w.Println("%s", w.styled(red+bold, "Status: Failure"))
	for i, e := range errs {
		w.Errorln("  %d) %s: %s", i+1, e.TargetName, e.Message)
	}
}
