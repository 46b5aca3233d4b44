// Package main is the entry point for the buildforge CLI: it registers a
// small demonstration target graph (clean, restore, build, test) and
// delegates everything else to internal/driver.Run, the way a project
// embedding buildforge would register its own targets before calling Run.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buildforge/buildforge/internal/cireport"
	"github.com/buildforge/buildforge/internal/config"
	"github.com/buildforge/buildforge/internal/driver"
	"github.com/buildforge/buildforge/internal/hooks"
	"github.com/buildforge/buildforge/internal/procs"
	"github.com/buildforge/buildforge/internal/registry"
	"github.com/buildforge/buildforge/internal/report"
)

// version is set at build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// wantsHelp checks if args contain -h or --help.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

func run(args []string) int {
	if wantsHelp(args) {
		printUsage()
		return 0
	}
	if len(args) > 0 && (args[0] == "--version" || args[0] == "version") {
		fmt.Printf("buildforge %s\n", version)
		return 0
	}

	opts, targetName := parseArgs(args)
	if targetName == "" {
		targetName = "build"
	}

	reg := registry.New()
	registerDemoTargets(reg)

	h := hooks.New(reg)
	if err := h.RegisterFinalTarget("notify", func(context.Context) error {
		return nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, "buildforge:", err)
		return 1
	}
	if err := h.Activate(hooks.Final, "notify"); err != nil {
		fmt.Fprintln(os.Stderr, "buildforge:", err)
		return 1
	}

	cfg, err := config.Load("buildforge.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "buildforge:", err)
		return 1
	}
	params := config.NewParams(cfg)

	w := report.New()
	if opts.Verbose {
		w.SetVerbose(true)
	}
	ci := cireport.New()
	reaper := procs.New()

	return driver.Run(context.Background(), targetName, reg, h, w, ci, params, reaper, opts.driverOptions())
}

// cliOptions holds the flags recognized by the CLI layer, distinct from
// the engine-level build parameters config.Params resolves.
type cliOptions struct {
	SingleTarget bool
	Verbose      bool
	Graph        bool
}

func (o cliOptions) driverOptions() driver.Options {
	return driver.Options{SingleTarget: o.SingleTarget, Verbose: o.Graph}
}

// parseArgs extracts recognized flags and returns the remaining target
// name (or "--listTargets"/"-lt").
func parseArgs(args []string) (cliOptions, string) {
	var opts cliOptions
	var targetName string
	for _, arg := range args {
		switch arg {
		case "--single-target":
			opts.SingleTarget = true
		case "-v", "--verbose":
			opts.Verbose = true
		case "--graph":
			opts.Graph = true
		default:
			if targetName == "" {
				targetName = arg
			}
		}
	}
	return opts, targetName
}

func printUsage() {
	fmt.Println(`buildforge [flags] <target>

Flags:
  --single-target   run only the named target, skipping its dependencies
  --graph           show the verbose dependency tree before running
  -v, --verbose     enable verbose trace logging
  -h, --help        show this help text
  --version         print the version

Special targets:
  --listTargets, -lt   print every registered target and exit`)
}

// registerDemoTargets wires a small, representative pipeline so the
// binary is runnable out of the box; a real project embedding buildforge
// replaces this with its own Define/DependOn calls.
func registerDemoTargets(reg *registry.Registry) {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	if err := reg.Describe("removes build output"); err != nil {
		panic(err)
	}
	if _, err := reg.Define("clean", func(context.Context) error { return nil }); err != nil {
		panic(err)
	}

	if err := reg.Describe("restores dependencies"); err != nil {
		panic(err)
	}
	if _, err := reg.Define("restore", func(context.Context) error { return nil }); err != nil {
		panic(err)
	}
	must(reg.DependOn("restore", "clean"))

	if err := reg.Describe("compiles the project"); err != nil {
		panic(err)
	}
	if _, err := reg.Define("build", func(context.Context) error { return nil }); err != nil {
		panic(err)
	}
	must(reg.DependOn("build", "restore"))

	if err := reg.Describe("runs the test suite"); err != nil {
		panic(err)
	}
	if _, err := reg.Define("test", func(context.Context) error { return nil }); err != nil {
		panic(err)
	}
	must(reg.DependOn("test", "build"))
}
