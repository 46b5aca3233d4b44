package config

import (
	"os"
	"strconv"
)

// Params resolves build parameters (hasBuildParam, environVarOrDefault)
// by merging, in ascending priority, compiled-in defaults and a loaded
// Config. The only environment override is BUILDFORGE_PARALLEL_JOBS,
// which ParallelJobs consults at call time.
type Params struct {
	values map[string]string
}

// NewParams builds a Params from a loaded Config (possibly empty/nil),
// applying defaults and then the Config's values. It reads no
// environment variables.
func NewParams(cfg *Config) *Params {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Params{values: make(map[string]string)}

	p.values["parallel-jobs"] = strconv.Itoa(DefaultParallelJobs)
	p.values["print-stack-trace-on-error"] = "false"

	if cfg.ParallelJobs != nil {
		p.values["parallel-jobs"] = strconv.Itoa(*cfg.ParallelJobs)
	}
	if cfg.PrintStackTraceOnError != nil {
		p.values["print-stack-trace-on-error"] = strconv.FormatBool(*cfg.PrintStackTraceOnError)
	}

	return p
}

// HasBuildParam reports whether name has a known value (file or default
// both count; this is never false for the two engine-recognized
// parameter names).
func (p *Params) HasBuildParam(name string) bool {
	_, ok := p.values[name]
	return ok
}

// EnvironVarOrDefault returns os.Getenv(key) if set, or def otherwise.
func (p *Params) EnvironVarOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// ParallelJobsWarning is returned by ParallelJobs when
// BUILDFORGE_PARALLEL_JOBS is set but out of range or non-numeric, so the
// caller can log it through the same logging sink used everywhere else
// (this package has no logger dependency of its own).
type ParallelJobsWarning struct {
	Message string
}

// ParallelJobs resolves the effective worker-pool size: the
// BUILDFORGE_PARALLEL_JOBS environment variable takes precedence over the
// config/default value, unless it is non-numeric or outside
// [1, MaxParallelJobs], in which case the config/default value is used
// and a warning is returned.
func (p *Params) ParallelJobs() (int, *ParallelJobsWarning) {
	fallback, _ := strconv.Atoi(p.values["parallel-jobs"])
	if fallback < 1 {
		fallback = DefaultParallelJobs
	}

	env := p.EnvironVarOrDefault("BUILDFORGE_PARALLEL_JOBS", "")
	if env == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		return fallback, &ParallelJobsWarning{Message: "invalid BUILDFORGE_PARALLEL_JOBS value " + strconv.Quote(env) + " (not a number), using default"}
	}
	if n < 1 || n > MaxParallelJobs {
		return fallback, &ParallelJobsWarning{Message: "BUILDFORGE_PARALLEL_JOBS=" + strconv.Itoa(n) + " out of range [1-" + strconv.Itoa(MaxParallelJobs) + "], using default"}
	}
	return n, nil
}

// PrintStackTraceOnError reports the resolved print-stack-trace-on-error
// parameter.
func (p *Params) PrintStackTraceOnError() bool {
	v, _ := strconv.ParseBool(p.values["print-stack-trace-on-error"])
	return v
}
