package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "buildforge.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for a missing optional file", err)
	}
	if cfg.ParallelJobs != nil {
		t.Errorf("ParallelJobs = %v, want nil", cfg.ParallelJobs)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeTempConfig(t, "parallel-jobs: 4\nprint-stack-trace-on-error: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ParallelJobs == nil || *cfg.ParallelJobs != 4 {
		t.Errorf("ParallelJobs = %v, want 4", cfg.ParallelJobs)
	}
	if cfg.PrintStackTraceOnError == nil || !*cfg.PrintStackTraceOnError {
		t.Errorf("PrintStackTraceOnError = %v, want true", cfg.PrintStackTraceOnError)
	}
}

func TestLoad_SchemaRejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "parallel-jobs: 4\nunknown-field: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want a schema validation failure for an unknown field")
	}
}

func TestLoad_SchemaRejectsOutOfRangeValue(t *testing.T) {
	path := writeTempConfig(t, "parallel-jobs: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want a schema validation failure for parallel-jobs: 0")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "parallel-jobs: [this is not\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want a parse failure for malformed YAML")
	}
}
