package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyPath indicates a required path setting is missing
	ErrEmptyPath = errors.New("empty path")

	// ErrInvalidExtension indicates a source extension without a leading dot
	ErrInvalidExtension = errors.New("invalid source extension")

	// ErrInvalidPattern indicates an include or exclude glob that does not compile
	ErrInvalidPattern = errors.New("invalid class pattern")

	// ErrInvalidAlgorithm indicates an unsupported call graph algorithm
	ErrInvalidAlgorithm = errors.New("invalid call graph algorithm")

	// ErrInvalidCacheSize indicates a negative probe cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")
)

// Validate checks that the configuration is valid and complete. All problems
// are reported together.
func Validate(cfg *Config) error {
	return errors.Join(
		validateInput(&cfg.Input),
		validateOutput(&cfg.Output),
		validateCallGraph(&cfg.CallGraph),
		validateExtraction(&cfg.Extraction),
	)
}

func validateInput(cfg *InputConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.ClassesDir) == "" {
		errs = append(errs, fmt.Errorf("%w: classes_dir is required", ErrEmptyPath))
	}

	if strings.TrimSpace(cfg.SourceRoot) == "" {
		errs = append(errs, fmt.Errorf("%w: source_root is required", ErrEmptyPath))
	}

	if !strings.HasPrefix(cfg.SourceExtension, ".") || len(cfg.SourceExtension) < 2 {
		errs = append(errs, fmt.Errorf("%w: must start with '.', got '%s'", ErrInvalidExtension, cfg.SourceExtension))
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, pattern, err))
		}
	}

	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	// sqlite_path is optional
	if strings.TrimSpace(cfg.CSVPath) == "" {
		return fmt.Errorf("%w: csv_path is required", ErrEmptyPath)
	}
	return nil
}

func validateCallGraph(cfg *CallGraphConfig) error {
	var errs []error

	algorithm := strings.ToLower(cfg.Algorithm)
	if algorithm != "rta" && algorithm != "cha" {
		errs = append(errs, fmt.Errorf("%w: must be 'rta' or 'cha', got '%s'", ErrInvalidAlgorithm, cfg.Algorithm))
	}

	// Zero disables the cache
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return errors.Join(errs...)
}

func validateExtraction(cfg *ExtractionConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers)
	}
	return nil
}
