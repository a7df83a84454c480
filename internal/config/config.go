// Package config provides configuration loading for javacorpus.
//
// Configuration is resolved per project directory, highest priority first:
//  1. Command-line flags (applied by the CLI after loading)
//  2. Environment variables (JAVACORPUS_*)
//  3. Project config (.javacorpus/config.yml or .javacorpus/config.yaml)
//  4. Built-in defaults
//
// Nested keys map to environment variables with underscores, e.g.
// callgraph.cache_size is JAVACORPUS_CALLGRAPH_CACHE_SIZE.
package config

// Config represents the complete javacorpus configuration.
type Config struct {
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	CallGraph  CallGraphConfig  `yaml:"callgraph" mapstructure:"callgraph"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
}

// InputConfig locates the compiled classes and their sources.
type InputConfig struct {
	ClassesDir      string   `yaml:"classes_dir" mapstructure:"classes_dir"`           // root of the .class tree
	SourceRoot      string   `yaml:"source_root" mapstructure:"source_root"`           // root of the source tree
	SourceExtension string   `yaml:"source_extension" mapstructure:"source_extension"` // e.g. ".java"
	Include         []string `yaml:"include" mapstructure:"include"`                   // class-name globs, '.' separated
	Exclude         []string `yaml:"exclude" mapstructure:"exclude"`                   // class-name globs, '.' separated
}

// OutputConfig names the dataset destinations.
type OutputConfig struct {
	CSVPath    string `yaml:"csv_path" mapstructure:"csv_path"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"` // empty disables the SQLite mirror
}

// CallGraphConfig configures callee probing.
type CallGraphConfig struct {
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"`   // "rta" or "cha"
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"` // probe results kept; 0 disables
}

// ExtractionConfig configures the extraction driver.
type ExtractionConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // classes processed concurrently
}

// Default returns a configuration with sensible defaults for a Maven layout.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			ClassesDir:      "target/classes",
			SourceRoot:      "src/main/java",
			SourceExtension: ".java",
			Include:         []string{},
			Exclude:         []string{},
		},
		Output: OutputConfig{
			CSVPath: "Test_Data.csv",
		},
		CallGraph: CallGraphConfig{
			Algorithm: "rta",
			CacheSize: 0,
		},
		Extraction: ExtractionConfig{
			Workers: 1,
		},
	}
}
