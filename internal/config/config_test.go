package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .javacorpus/config.yml when present
// - LoadConfig() loads from .javacorpus/config.yaml when present
// - LoadConfig() merges config file with defaults
// - Environment variables override config file values
// - Environment variables override defaults and split comma-separated lists
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() rejects empty paths and bad extensions
// - Validate() rejects unknown algorithms and negative cache sizes
// - Validate() rejects non-positive worker counts
// - Validate() rejects patterns that do not compile
// - Validate() returns every error for multiple invalid fields

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".javacorpus")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
	return tempDir
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "target/classes", cfg.Input.ClassesDir)
	assert.Equal(t, "src/main/java", cfg.Input.SourceRoot)
	assert.Equal(t, ".java", cfg.Input.SourceExtension)
	assert.Empty(t, cfg.Input.Include)
	assert.Empty(t, cfg.Input.Exclude)

	assert.Equal(t, "Test_Data.csv", cfg.Output.CSVPath)
	assert.Empty(t, cfg.Output.SQLitePath)

	assert.Equal(t, "rta", cfg.CallGraph.Algorithm)
	assert.Equal(t, 0, cfg.CallGraph.CacheSize)
	assert.Equal(t, 1, cfg.Extraction.Workers)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	expected := Default()
	assert.Equal(t, expected.Input.ClassesDir, cfg.Input.ClassesDir)
	assert.Equal(t, expected.Output.CSVPath, cfg.Output.CSVPath)
	assert.Equal(t, expected.CallGraph.Algorithm, cfg.CallGraph.Algorithm)
	assert.Equal(t, expected.Extraction.Workers, cfg.Extraction.Workers)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
input:
  classes_dir: build/classes/java/main
  source_root: src
  source_extension: .java
  include:
    - "com.acme.**"
  exclude:
    - "com.acme.gen.*"

output:
  csv_path: out/corpus.csv
  sqlite_path: out/corpus.db

callgraph:
  algorithm: cha
  cache_size: 4096

extraction:
  workers: 8
`)

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "build/classes/java/main", cfg.Input.ClassesDir)
	assert.Equal(t, "src", cfg.Input.SourceRoot)
	assert.Equal(t, []string{"com.acme.**"}, cfg.Input.Include)
	assert.Equal(t, []string{"com.acme.gen.*"}, cfg.Input.Exclude)
	assert.Equal(t, "out/corpus.csv", cfg.Output.CSVPath)
	assert.Equal(t, "out/corpus.db", cfg.Output.SQLitePath)
	assert.Equal(t, "cha", cfg.CallGraph.Algorithm)
	assert.Equal(t, 4096, cfg.CallGraph.CacheSize)
	assert.Equal(t, 8, cfg.Extraction.Workers)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yaml", `
input:
  source_extension: .jav
`)

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, ".jav", cfg.Input.SourceExtension)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
callgraph:
  algorithm: cha
`)

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "cha", cfg.CallGraph.Algorithm)
	assert.Equal(t, 0, cfg.CallGraph.CacheSize)
	assert.Equal(t, "target/classes", cfg.Input.ClassesDir)
	assert.Equal(t, "Test_Data.csv", cfg.Output.CSVPath)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	dir := writeConfig(t, "config.yml", `
input:
  classes_dir: file/classes
  source_root: file/src
callgraph:
  cache_size: 10
`)

	t.Setenv("JAVACORPUS_INPUT_CLASSES_DIR", "env/classes")
	t.Setenv("JAVACORPUS_CALLGRAPH_CACHE_SIZE", "99")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	// Environment variables should win
	assert.Equal(t, "env/classes", cfg.Input.ClassesDir)
	assert.Equal(t, 99, cfg.CallGraph.CacheSize)

	// Not overridden, should come from config file
	assert.Equal(t, "file/src", cfg.Input.SourceRoot)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	t.Setenv("JAVACORPUS_OUTPUT_SQLITE_PATH", "corpus.db")
	t.Setenv("JAVACORPUS_EXTRACTION_WORKERS", "4")
	t.Setenv("JAVACORPUS_INPUT_EXCLUDE", "com.acme.gen.*,com.acme.test.*")

	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "corpus.db", cfg.Output.SQLitePath)
	assert.Equal(t, 4, cfg.Extraction.Workers)
	assert.Equal(t, []string{"com.acme.gen.*", "com.acme.test.*"}, cfg.Input.Exclude)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
input:
  classes_dir: [unterminated
`)

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
callgraph:
  algorithm: spark
`)

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(cfg *Config)
		want   error
	}{
		{"empty classes dir", func(c *Config) { c.Input.ClassesDir = " " }, ErrEmptyPath},
		{"empty source root", func(c *Config) { c.Input.SourceRoot = "" }, ErrEmptyPath},
		{"extension without dot", func(c *Config) { c.Input.SourceExtension = "java" }, ErrInvalidExtension},
		{"bare dot extension", func(c *Config) { c.Input.SourceExtension = "." }, ErrInvalidExtension},
		{"unclosed class pattern", func(c *Config) { c.Input.Include = []string{"com.[acme"} }, ErrInvalidPattern},
		{"empty csv path", func(c *Config) { c.Output.CSVPath = "" }, ErrEmptyPath},
		{"unknown algorithm", func(c *Config) { c.CallGraph.Algorithm = "spark" }, ErrInvalidAlgorithm},
		{"negative cache size", func(c *Config) { c.CallGraph.CacheSize = -1 }, ErrInvalidCacheSize},
		{"zero workers", func(c *Config) { c.Extraction.Workers = 0 }, ErrInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_AcceptsUppercaseAlgorithm(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.CallGraph.Algorithm = "CHA"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_ReturnsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Input.ClassesDir = ""
	cfg.CallGraph.Algorithm = "spark"
	cfg.Extraction.Workers = -2

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}
