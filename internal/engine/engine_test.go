package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/buildforge/buildforge/internal/builderrors"
	"github.com/buildforge/buildforge/internal/registry"
)

// recordingLogger and recordingCI are fakes standing in for the engine's
// external collaborators so tests can assert on what was logged/emitted
// without depending on the real report.Writer.
type recordingLogger struct {
	mu      sync.Mutex
	started []string
	ended   []string
	errored []string
}

func (l *recordingLogger) Log(string)            {}
func (l *recordingLogger) Logf(string, ...interface{}) {}
func (l *recordingLogger) Tracef(string, ...interface{}) {}
func (l *recordingLogger) TraceLine(string)      {}
func (l *recordingLogger) TraceHeader(string)    {}
func (l *recordingLogger) CloseAllOpenTags()     {}
func (l *recordingLogger) TraceError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errored = append(l.errored, err.Error())
}
func (l *recordingLogger) TraceStartTarget(name, _ string, _ []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, name)
}
func (l *recordingLogger) TraceEndTarget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended = append(l.ended, name)
}

type recordingCI struct {
	mu   sync.Mutex
	sent []string
}

func (c *recordingCI) SendCIError(targetName, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, targetName)
}

func newHarness() (*registry.Registry, *recordingLogger, *recordingCI) {
	return registry.New(), &recordingLogger{}, &recordingCI{}
}

func TestRunSequential_LinearChain(t *testing.T) {
	reg, logger, ci := newHarness()
	var ran []string
	var mu sync.Mutex
	record := func(name string) registry.Body {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}
	for _, n := range []string{"A", "B", "C"} {
		if _, err := reg.Define(n, record(n)); err != nil {
			t.Fatal(err)
		}
	}
	must(t, reg.DependOn("B", "A"))
	must(t, reg.DependOn("C", "B"))

	e := New(reg, logger, ci)
	if err := e.RunSequential(context.Background(), "C"); err != nil {
		t.Fatalf("RunSequential() error = %v", err)
	}

	want := []string{"A", "B", "C"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Errorf("ran = %v, want %v", ran, want)
		}
	}
	if len(e.Timings()) != 3 {
		t.Errorf("len(Timings()) = %d, want 3", len(e.Timings()))
	}
	if e.HadErrors() {
		t.Error("HadErrors() = true, want false")
	}
}

func TestRunSequential_FailureSkipsDependents(t *testing.T) {
	// A fails, B (depends on A) is skipped.
	reg, logger, ci := newHarness()
	var bRan bool
	if _, err := reg.Define("A", func(context.Context) error { return builderrors.New("boom") }); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Define("B", func(context.Context) error { bRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	must(t, reg.DependOn("B", "A"))

	e := New(reg, logger, ci)
	if err := e.RunSequential(context.Background(), "B"); err != nil {
		t.Fatalf("RunSequential() error = %v", err)
	}

	if bRan {
		t.Error("B ran despite A's failure; expected short-circuit")
	}
	if !e.HadErrors() {
		t.Error("HadErrors() = false, want true")
	}
	executed := e.ExecutedTargets()
	if !executed["a"] || executed["b"] {
		t.Errorf("ExecutedTargets() = %v, want only a", executed)
	}
}

func TestRunSingleTarget_ExactlyOnce(t *testing.T) {
	reg, logger, ci := newHarness()
	count := 0
	var mu sync.Mutex
	if _, err := reg.Define("A", func(context.Context) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	e := New(reg, logger, ci)
	target, _ := reg.Get("A")
	e.RunSingleTarget(context.Background(), target, false)
	e.RunSingleTarget(context.Background(), target, false)

	if count != 1 {
		t.Errorf("body ran %d times, want 1", count)
	}
}

func TestRunParallel_DiamondOrdering(t *testing.T) {
	// A before B and C; D after both.
	reg, logger, ci := newHarness()
	var mu sync.Mutex
	var completed []string
	record := func(name string) registry.Body {
		return func(context.Context) error {
			mu.Lock()
			completed = append(completed, name)
			mu.Unlock()
			return nil
		}
	}
	for _, n := range []string{"A", "B", "C", "D"} {
		if _, err := reg.Define(n, record(n)); err != nil {
			t.Fatal(err)
		}
	}
	must(t, reg.DependOn("B", "A"))
	must(t, reg.DependOn("C", "A"))
	must(t, reg.DependOn("D", "B"))
	must(t, reg.DependOn("D", "C"))

	e := New(reg, logger, ci)
	if err := e.RunParallel(context.Background(), 4, "D"); err != nil {
		t.Fatalf("RunParallel() error = %v", err)
	}

	if len(completed) != 4 {
		t.Fatalf("completed = %v, want 4 entries", completed)
	}
	if completed[0] != "A" {
		t.Errorf("completed[0] = %q, want A", completed[0])
	}
	if completed[3] != "D" {
		t.Errorf("completed[3] = %q, want D", completed[3])
	}
}

func TestRecordFailure_SubErrors(t *testing.T) {
	reg, logger, ci := newHarness()
	sub1 := errors.New("sub one")
	sub2 := errors.New("sub two")
	if _, err := reg.Define("A", func(context.Context) error {
		return builderrors.New("outer failure").WithSubs(sub1, sub2)
	}); err != nil {
		t.Fatal(err)
	}

	e := New(reg, logger, ci)
	target, _ := reg.Get("A")
	e.RunSingleTarget(context.Background(), target, false)

	recorded := e.Errors()
	if len(recorded) != 3 {
		t.Fatalf("len(Errors()) = %d, want 3 (2 subs + 1 outer)", len(recorded))
	}
}

func TestRecordFailure_TestFailureSuppressesCI(t *testing.T) {
	reg, logger, ci := newHarness()
	if _, err := reg.Define("A", func(context.Context) error {
		return builderrors.TestFailure("assertion failed")
	}); err != nil {
		t.Fatal(err)
	}

	e := New(reg, logger, ci)
	target, _ := reg.Get("A")
	e.RunSingleTarget(context.Background(), target, false)

	if len(ci.sent) != 0 {
		t.Errorf("CI emitter got %v, want no calls for a test-failure error", ci.sent)
	}
	if len(logger.errored) != 1 {
		t.Errorf("logger.errored = %v, want 1 entry (test failures are still logged)", logger.errored)
	}
}

func TestRecordFailure_RuntimeErrorReachesCI(t *testing.T) {
	reg, logger, ci := newHarness()
	if _, err := reg.Define("A", func(context.Context) error {
		return builderrors.New("infra broke")
	}); err != nil {
		t.Fatal(err)
	}

	e := New(reg, logger, ci)
	target, _ := reg.Get("A")
	e.RunSingleTarget(context.Background(), target, false)

	if len(ci.sent) != 1 {
		t.Errorf("CI emitter got %v, want 1 call", ci.sent)
	}
}

func TestRunOnly_SkipsDependencies(t *testing.T) {
	// Single-target mode runs only the named target.
	reg, logger, ci := newHarness()
	var aRan, bRan, cRan bool
	if _, err := reg.Define("A", func(context.Context) error { aRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Define("B", func(context.Context) error { bRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Define("C", func(context.Context) error { cRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	must(t, reg.DependOn("B", "A"))
	must(t, reg.DependOn("C", "B"))

	e := New(reg, logger, ci)
	if err := e.RunOnly(context.Background(), "C"); err != nil {
		t.Fatalf("RunOnly() error = %v", err)
	}

	if aRan || bRan {
		t.Error("RunOnly() ran dependencies, want only the named target")
	}
	if !cRan {
		t.Error("RunOnly() did not run the named target")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
