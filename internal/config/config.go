// Package config loads buildforge.yaml, validates it against an embedded
// JSON Schema, and merges it with environment overrides and compiled-in
// defaults to produce the build parameters (hasBuildParam,
// environVarOrDefault) the engine consults at run time.
//
// Configuration is engine-level only: target bodies stay registered Go
// closures, never config data.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/buildforge/buildforge/internal/builderrors"
)

const (
	// DefaultParallelJobs is used when no file value and no environment
	// override are present.
	DefaultParallelJobs = 1
	// MaxParallelJobs bounds the BUILDFORGE_PARALLEL_JOBS override.
	MaxParallelJobs = 256
)

// Config is the decoded, schema-validated contents of buildforge.yaml.
// Both fields are pointers so "unset in the file" is distinguishable from
// "explicitly set to the zero value."
type Config struct {
	ParallelJobs           *int  `yaml:"parallel-jobs"`
	PrintStackTraceOnError *bool `yaml:"print-stack-trace-on-error"`
}

// Load reads path, validates it against the embedded schema, and decodes
// it into a Config. A missing file is not an error: Load returns an empty
// Config, since buildforge.yaml is optional and every parameter has a
// default. A malformed or schema-invalid file fails loudly with a
// KindConfig (registration) error, so the caller stops before Run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, builderrors.Configf("read %s: %v", path, err)
	}

	if err := validateAgainstSchema(data); err != nil {
		return nil, &builderrors.BuildError{Kind: builderrors.KindConfig, Message: fmt.Sprintf("%s failed schema validation", path), Cause: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &builderrors.BuildError{Kind: builderrors.KindConfig, Message: fmt.Sprintf("parse %s", path), Cause: err}
	}
	return &cfg, nil
}

// validateAgainstSchema re-decodes data into a generic document (yaml.v3
// already produces map[string]interface{} keys for mapping nodes, which
// the JSON Schema validator accepts directly) and validates it.
func validateAgainstSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return ValidateConfig(normalizeForSchema(doc))
}

// normalizeForSchema converts the map[string]interface{}/[]interface{}
// tree yaml.v3 produces into the map[string]any/[]any shape
// santhosh-tekuri/jsonschema expects, recursively. yaml.v3 already uses
// string keys (unlike yaml.v2's map[interface{}]interface{}), so this is
// an identity conversion in practice: maps and slices are copied, and
// every other value (including scalars) is returned unchanged.
func normalizeForSchema(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = normalizeForSchema(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeForSchema(e)
		}
		return out
	default:
		return val
	}
}
