package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/javacorpus/internal/callgraph"
	"github.com/mvp-joe/javacorpus/internal/config"
	"github.com/mvp-joe/javacorpus/internal/dataset"
	"github.com/mvp-joe/javacorpus/internal/extractor"
)

type extractOptions struct {
	dir       string
	classes   string
	sources   string
	extension string
	include   []string
	exclude   []string
	out       string
	sqlite    string
	algorithm string
	cacheSize int
	workers   int
	quiet     bool
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the method dataset of a compiled project",
		Long: `Extract loads every class under the classes directory, pairs each method
with its declaration in the source tree and writes one CSV row per method.

Classes without a source file still produce rows carrying only the facts
recovered from bytecode. Methods whose bytecode cannot be decoded are skipped.

Relative paths are resolved against --dir.

Examples:
  # Extract a Maven project from its root
  javacorpus extract

  # Gradle layout, mirrored into SQLite, four workers
  javacorpus extract --classes build/classes/java/main --sources src/main/java \
    --sqlite corpus.db --workers 4

  # Only the service packages, with class hierarchy analysis
  javacorpus extract --include 'com.acme.service.**' --algorithm cha
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Project directory holding .javacorpus/config.yml")
	cmd.Flags().StringVar(&opts.classes, "classes", "", "Root of the compiled class tree")
	cmd.Flags().StringVar(&opts.sources, "sources", "", "Root of the source tree")
	cmd.Flags().StringVar(&opts.extension, "ext", "", "Source file extension")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Class-name globs to include (e.g. 'com.acme.**')")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Class-name globs to exclude")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "CSV output path")
	cmd.Flags().StringVar(&opts.sqlite, "sqlite", "", "Also write records to this SQLite database")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", "Call graph algorithm: rta or cha")
	cmd.Flags().IntVar(&opts.cacheSize, "cache-size", 0, "Callee lookups to cache (0 disables)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Classes processed concurrently")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Disable progress bars and non-error output")
	return cmd
}

func init() {
	rootCmd.AddCommand(newExtractCmd())
}

func runExtract(cmd *cobra.Command, opts *extractOptions) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := config.LoadConfigFromDir(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyExtractFlags(cmd, opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return executeExtract(ctx, cmd.OutOrStdout(), opts.dir, cfg, opts.quiet)
}

// applyExtractFlags copies explicitly set flags over the loaded configuration.
func applyExtractFlags(cmd *cobra.Command, opts *extractOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("classes") {
		cfg.Input.ClassesDir = opts.classes
	}
	if flags.Changed("sources") {
		cfg.Input.SourceRoot = opts.sources
	}
	if flags.Changed("ext") {
		cfg.Input.SourceExtension = opts.extension
	}
	if flags.Changed("include") {
		cfg.Input.Include = opts.include
	}
	if flags.Changed("exclude") {
		cfg.Input.Exclude = opts.exclude
	}
	if flags.Changed("out") {
		cfg.Output.CSVPath = opts.out
	}
	if flags.Changed("sqlite") {
		cfg.Output.SQLitePath = opts.sqlite
	}
	if flags.Changed("algorithm") {
		cfg.CallGraph.Algorithm = opts.algorithm
	}
	if flags.Changed("cache-size") {
		cfg.CallGraph.CacheSize = opts.cacheSize
	}
	if flags.Changed("workers") {
		cfg.Extraction.Workers = opts.workers
	}
}

// resolvePath anchors a relative path at rootDir.
func resolvePath(rootDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

// executeExtract runs one extraction for cfg and reports completion to out.
func executeExtract(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, quiet bool) (err error) {
	csvPath := resolvePath(rootDir, cfg.Output.CSVPath)
	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	csvWriter, err := dataset.CreateCSV(csvPath)
	if err != nil {
		return err
	}
	sinks := dataset.MultiSink{csvWriter}
	defer func() {
		if err != nil {
			if aerr := sinks.Abort(); aerr != nil {
				log.Printf("Warning: failed to discard output: %v\n", aerr)
			}
			return
		}
		if cerr := sinks.Close(); cerr != nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()

	runCfg := extractor.Config{
		ClassesDir:      resolvePath(rootDir, cfg.Input.ClassesDir),
		SourceRoot:      resolvePath(rootDir, cfg.Input.SourceRoot),
		SourceExtension: cfg.Input.SourceExtension,
		Include:         cfg.Input.Include,
		Exclude:         cfg.Input.Exclude,
		Algorithm:       callgraph.Algorithm(strings.ToLower(cfg.CallGraph.Algorithm)),
		CacheSize:       cfg.CallGraph.CacheSize,
		Workers:         cfg.Extraction.Workers,
	}

	if cfg.Output.SQLitePath != "" {
		sqliteSink, err := dataset.OpenSQLite(resolvePath(rootDir, cfg.Output.SQLitePath), dataset.RunInfo{
			ClassesDir: runCfg.ClassesDir,
			SourceRoot: runCfg.SourceRoot,
			Algorithm:  string(runCfg.Algorithm),
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, sqliteSink)
	}

	progress := NewCLIProgressReporter(out, quiet)
	if _, err := extractor.New(runCfg, sinks, progress).Run(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Fprintf(out, "Extraction complete. Data saved to %s.\n", csvPath)
	return nil
}
