// Package engine runs targets in dependency order, recording per-target
// timings, catching body failures, and aggregating errors.
//
// It is a thin orchestrator around a registry plus a worker-pool-bounded
// parallel path, built to run a target body while honoring a fail-fast
// short-circuit and an exactly-once execution invariant.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/buildforge/buildforge/internal/builderrors"
	"github.com/buildforge/buildforge/internal/planner"
	"github.com/buildforge/buildforge/internal/registry"
)

// Logger is the logging-sink collaborator the engine emits through: text
// emission only, no return values to inspect. internal/report.Writer is
// the default implementation consumed through this interface.
type Logger interface {
	Log(message string)
	Logf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
	TraceError(err error)
	TraceLine(text string)
	TraceHeader(text string)
	TraceStartTarget(name, description string, dependencies []string)
	TraceEndTarget(name string)
	// CloseAllOpenTags flushes any open logical scopes before an error is
	// recorded.
	CloseAllOpenTags()
}

// CIEmitter is the CI-system error-reporting side channel the engine
// forwards failures to. It is suppressed for test-failure-kind errors.
type CIEmitter interface {
	SendCIError(targetName, message string)
}

// TimingRecord is one (normalizedName, elapsedDuration) entry in
// executionTimings, in completion order.
type TimingRecord struct {
	NormalizedName string
	Elapsed        time.Duration
}

// ErrorRecord is one (targetName, message) entry in the error list.
// TargetName is the original-case display name.
type ErrorRecord struct {
	TargetName string
	Message    string
}

// state holds the shared execution state mutated during a run, protected
// by a single mutex covering all three fields.
type state struct {
	mu              sync.Mutex
	executedTargets map[string]bool
	timings         []TimingRecord
	errors          []ErrorRecord
}

// Engine runs targets registered in a Registry.
type Engine struct {
	registry        *registry.Registry
	logger          Logger
	ci              CIEmitter
	printStackTrace bool
	state           state
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithStackTraceOnError enables appending a captured error chain to the
// logged message for execution errors.
func WithStackTraceOnError(enabled bool) Option {
	return func(e *Engine) { e.printStackTrace = enabled }
}

// New creates an Engine bound to reg, emitting through logger and ci.
func New(reg *registry.Registry, logger Logger, ci CIEmitter, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		logger:   logger,
		ci:       ci,
		state: state{
			executedTargets: make(map[string]bool),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HadErrors reports whether any error has been recorded so far.
func (e *Engine) HadErrors() bool {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return len(e.state.errors) > 0
}

// Errors returns a snapshot of the recorded error list, in recording order.
func (e *Engine) Errors() []ErrorRecord {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	out := make([]ErrorRecord, len(e.state.errors))
	copy(out, e.state.errors)
	return out
}

// Timings returns a snapshot of executionTimings, in completion order.
func (e *Engine) Timings() []TimingRecord {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	out := make([]TimingRecord, len(e.state.timings))
	copy(out, e.state.timings)
	return out
}

// ExecutedTargets returns the set of normalized names whose bodies have
// run (successfully or with a caught error) at least once this run.
func (e *Engine) ExecutedTargets() map[string]bool {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	out := make(map[string]bool, len(e.state.executedTargets))
	for k := range e.state.executedTargets {
		out[k] = true
	}
	return out
}

// RunSingleTarget runs exactly one target's body, honoring the fail-fast
// short-circuit (unless skipShortCircuit) and the exactly-once invariant.
// It never returns the body's error: failures are caught, recorded,
// logged, and optionally forwarded to the CI emitter.
func (e *Engine) RunSingleTarget(ctx context.Context, t *registry.Target, skipShortCircuit bool) {
	if !e.claim(t, skipShortCircuit) {
		return
	}

	e.logger.TraceStartTarget(t.Name(), t.Description(), t.Dependencies())
	start := time.Now()
	err := t.Body()(ctx)
	elapsed := time.Since(start)

	e.state.mu.Lock()
	e.state.timings = append(e.state.timings, TimingRecord{NormalizedName: t.NormalizedName(), Elapsed: elapsed})
	e.state.mu.Unlock()

	if err != nil {
		e.recordFailure(t, err)
		return
	}
	e.logger.TraceEndTarget(t.Name())
}

// claim atomically checks the short-circuit and exactly-once conditions
// and, if the target may proceed, marks it executed before releasing the
// lock — so two concurrent callers for the same target (which should not
// happen given how the planner partitions levels, but which the engine
// guards against regardless) cannot both run its body.
func (e *Engine) claim(t *registry.Target, skipShortCircuit bool) bool {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !skipShortCircuit && len(e.state.errors) > 0 {
		return false
	}
	if e.state.executedTargets[t.NormalizedName()] {
		return false
	}
	e.state.executedTargets[t.NormalizedName()] = true
	return true
}

// recordFailure appends one error record per structured sub-error plus
// one for the outer message, logs it, and forwards it to the CI emitter
// unless it is a test-failure variant.
func (e *Engine) recordFailure(t *registry.Target, err error) {
	e.logger.CloseAllOpenTags()

	message := err.Error()
	if e.printStackTrace {
		message = formatWithCause(err)
	}

	var be *builderrors.BuildError
	var records []ErrorRecord
	if errors.As(err, &be) && len(be.Subs) > 0 {
		for _, sub := range be.Subs {
			records = append(records, ErrorRecord{TargetName: t.Name(), Message: sub.Error()})
		}
		records = append(records, ErrorRecord{TargetName: t.Name(), Message: message})
	} else {
		records = append(records, ErrorRecord{TargetName: t.Name(), Message: message})
	}

	e.state.mu.Lock()
	e.state.errors = append(e.state.errors, records...)
	e.state.mu.Unlock()

	e.logger.TraceError(err)
	if !builderrors.IsTestFailure(err) {
		e.ci.SendCIError(t.Name(), err.Error())
	}
}

func formatWithCause(err error) string {
	msg := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		msg += "\n  caused by: " + cause.Error()
	}
	return msg
}

// RunSequential walks the sequential order from root (planner.Sequential)
// and runs each target whose body has not yet executed, so long as no
// error has been recorded.
func (e *Engine) RunSequential(ctx context.Context, root string) error {
	order, err := planner.Sequential(e.registry, root)
	if err != nil {
		return err
	}
	for _, t := range order {
		if e.HadErrors() {
			break
		}
		e.RunSingleTarget(ctx, t, false)
	}
	return nil
}

// RunParallel computes the level-partitioned order from root
// (planner.Parallel) and, for each level in order, dispatches all its
// targets to a worker pool of the given size, waiting for the level to
// finish before starting the next.
func (e *Engine) RunParallel(ctx context.Context, workers int, root string) error {
	if workers < 1 {
		workers = 1
	}
	levels, err := planner.Parallel(e.registry, root)
	if err != nil {
		return err
	}

	for _, level := range levels {
		if e.HadErrors() {
			break
		}
		e.runLevel(ctx, workers, level)
	}
	return nil
}

func (e *Engine) runLevel(ctx context.Context, workers int, level planner.Level) {
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, t := range level.Targets {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			e.RunSingleTarget(ctx, t, false)
		}()
	}
	wg.Wait()
}

// RunOnly runs only the named target's body, skipping dependency
// traversal entirely.
func (e *Engine) RunOnly(ctx context.Context, name string) error {
	t, err := e.registry.Get(name)
	if err != nil {
		return err
	}
	e.RunSingleTarget(ctx, t, false)
	return nil
}
