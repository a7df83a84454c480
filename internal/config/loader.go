package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (JAVACORPUS_*)
// 2. Config file (.javacorpus/config.yml or .javacorpus/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".javacorpus")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("JAVACORPUS")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., JAVACORPUS_INPUT_CLASSES_DIR)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Input configuration
	v.BindEnv("input.classes_dir")
	v.BindEnv("input.source_root")
	v.BindEnv("input.source_extension")
	v.BindEnv("input.include")
	v.BindEnv("input.exclude")

	// Output configuration
	v.BindEnv("output.csv_path")
	v.BindEnv("output.sqlite_path")

	// Call graph configuration
	v.BindEnv("callgraph.algorithm")
	v.BindEnv("callgraph.cache_size")

	v.BindEnv("extraction.workers")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("input.classes_dir", defaults.Input.ClassesDir)
	v.SetDefault("input.source_root", defaults.Input.SourceRoot)
	v.SetDefault("input.source_extension", defaults.Input.SourceExtension)
	v.SetDefault("input.include", defaults.Input.Include)
	v.SetDefault("input.exclude", defaults.Input.Exclude)

	v.SetDefault("output.csv_path", defaults.Output.CSVPath)
	v.SetDefault("output.sqlite_path", defaults.Output.SQLitePath)

	v.SetDefault("callgraph.algorithm", defaults.CallGraph.Algorithm)
	v.SetDefault("callgraph.cache_size", defaults.CallGraph.CacheSize)

	v.SetDefault("extraction.workers", defaults.Extraction.Workers)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
