// Package driver implements run(targetName): the top-level orchestration
// that ties the registry, planner, engine, hooks, reporting, CI emitter,
// and process reaper together into the single entry point cmd/buildforge
// calls.
//
// Flag parsing and the help short-circuit live in cmd/buildforge; Run
// applies the listTargets short-circuit before any engine setup and
// otherwise performs the single `run(targetName)` operation.
package driver

import (
	"context"
	"time"

	"github.com/buildforge/buildforge/internal/builderrors"
	"github.com/buildforge/buildforge/internal/config"
	"github.com/buildforge/buildforge/internal/engine"
	"github.com/buildforge/buildforge/internal/hooks"
	"github.com/buildforge/buildforge/internal/procs"
	"github.com/buildforge/buildforge/internal/registry"
	"github.com/buildforge/buildforge/internal/report"
)

// Options controls driver.Run beyond the build parameters already folded
// into a *config.Params.
type Options struct {
	// SingleTarget skips transitive dependency execution for the named
	// target, running only the target itself.
	SingleTarget bool
	// Verbose selects the verbose dependency-tree rendering style for
	// PrintDependencyGraph.
	Verbose bool
}

// Run implements run(targetName) end to end, including the
// --listTargets/-lt short-circuit and the guaranteed-cleanup teardown
// block. It returns the process exit code (builderrors.ExitSuccess or
// builderrors.ExitFailure).
func Run(ctx context.Context, targetName string, reg *registry.Registry, h *hooks.Hooks, w *report.Writer, ci engine.CIEmitter, params *config.Params, reaper *procs.Reaper, opts Options) (exitCode int) {
	if targetName == "--listTargets" || targetName == "-lt" {
		w.ListTargets(reg)
		return builderrors.ExitSuccess
	}

	if reg.HasPendingDescription() {
		w.TraceError(builderrors.Validation("a pending description was never attached to a target"))
		return builderrors.ExitFailure
	}

	e := engine.New(reg, w, ci, engine.WithStackTraceOnError(params.PrintStackTraceOnError()))

	start := time.Now()
	var runErr error

	// Guaranteed-cleanup teardown: deferred so it still runs if the run
	// below panics, not just on its normal or error return.
	defer func() {
		hadErrors := e.HadErrors() || runErr != nil
		h.RunAfter(ctx, e, hadErrors)
		reaper.KillAllCreatedProcesses()
		w.WriteTaskTimeSummary(e.Timings(), e.Errors(), time.Since(start))
		exitCode = builderrors.ExitCode(hadErrors)
	}()

	jobs, warning := params.ParallelJobs()
	if warning != nil {
		w.Warning("%s", warning.Message)
	}

	switch {
	case opts.SingleTarget:
		runErr = e.RunOnly(ctx, targetName)
	case jobs > 1:
		runErr = e.RunParallel(ctx, jobs, targetName)
	default:
		if printErr := w.PrintDependencyGraph(opts.Verbose, targetName, reg); printErr != nil {
			w.TraceError(printErr)
		}
		runErr = e.RunSequential(ctx, targetName)
	}
	if runErr != nil {
		w.TraceError(runErr)
	}

	return
}
