// Package extractor drives a dataset extraction run: it loads the compiled
// view, walks classes and methods in enumeration order, correlates each
// method with its source declaration, probes its callees and writes records.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/javacorpus/internal/callgraph"
	"github.com/mvp-joe/javacorpus/internal/correlate"
	"github.com/mvp-joe/javacorpus/internal/dataset"
	"github.com/mvp-joe/javacorpus/internal/program"
	"github.com/mvp-joe/javacorpus/internal/source"
)

// ErrMethodPanic indicates a panic while deriving the facts of one method.
var ErrMethodPanic = errors.New("panic while processing method")

// Config configures an extraction run.
type Config struct {
	ClassesDir      string
	SourceRoot      string
	SourceExtension string
	Include         []string
	Exclude         []string
	Algorithm       callgraph.Algorithm
	CacheSize       int
	Workers         int // classes processed concurrently; <= 1 is sequential
}

// Stats summarizes a run.
type Stats struct {
	ClassesLoaded   int
	ClassesSelected int
	SourcesMissing  int
	Methods         int
	Records         int
	Matched         int
	Skipped         int
	ProbeFailures   int64
	CacheHits       int64
	Duration        time.Duration
}

// Extractor runs extractions into a sink.
type Extractor struct {
	cfg      Config
	sink     dataset.Sink
	progress ProgressReporter
	tree     *source.Tree
	prober   *callgraph.Prober
}

// New creates an Extractor. A nil progress reporter disables reporting.
func New(cfg Config, sink dataset.Sink, progress ProgressReporter) *Extractor {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	return &Extractor{
		cfg:      cfg,
		sink:     sink,
		progress: progress,
		tree:     source.NewTree(cfg.SourceRoot, cfg.SourceExtension),
	}
}

// classResult holds the buffered output of one class.
type classResult struct {
	done          chan struct{}
	records       []dataset.Record
	skips         []skip
	methods       int
	matched       int
	sourceMissing bool
}

type skip struct {
	signature string
	err       error
}

// Run performs the extraction. Loader and sink failures abort the run; failures
// of a single class or method never do. Cancellation is observed between methods.
// The sink is not closed.
func (e *Extractor) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()

	e.progress.OnLoadStart(e.cfg.ClassesDir)
	view, err := program.Load(ctx, e.cfg.ClassesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}

	filter, err := program.NewClassFilter(e.cfg.Include, e.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	classes := filter.Select(view)
	e.progress.OnLoadComplete(view.Len(), len(classes))

	prober, err := callgraph.New(view, callgraph.Options{Algorithm: e.cfg.Algorithm, CacheSize: e.cfg.CacheSize})
	if err != nil {
		return nil, err
	}
	defer prober.Close()
	e.prober = prober

	stats := &Stats{ClassesLoaded: view.Len(), ClassesSelected: len(classes)}
	if e.cfg.Workers > 1 {
		err = e.runParallel(ctx, classes, stats)
	} else {
		err = e.runSequential(ctx, classes, stats)
	}
	if err != nil {
		return nil, err
	}

	probeStats := prober.Stats()
	stats.ProbeFailures = probeStats.Failures
	stats.CacheHits = probeStats.CacheHits
	stats.Duration = time.Since(start)
	e.progress.OnComplete(stats)
	return stats, nil
}

func (e *Extractor) runSequential(ctx context.Context, classes []*program.Class, stats *Stats) error {
	for _, c := range classes {
		res := &classResult{}
		if err := e.processClass(ctx, c, res); err != nil {
			return err
		}
		if err := e.drain(c, res, stats); err != nil {
			return err
		}
	}
	return nil
}

// runParallel processes classes concurrently and writes their records strictly
// in enumeration order.
func (e *Extractor) runParallel(ctx context.Context, classes []*program.Class, stats *Stats) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*classResult, len(classes))
	for i := range results {
		results[i] = &classResult{done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, c := range classes {
			res := results[i]
			g.Go(func() error {
				defer close(res.done)
				return e.processClass(gctx, c, res)
			})
		}
	}()

	var drainErr error
	for i, c := range classes {
		select {
		case <-results[i].done:
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			break
		}
		if err := e.drain(c, results[i], stats); err != nil {
			drainErr = err
			cancel()
			break
		}
	}

	<-launched
	werr := g.Wait()
	if drainErr != nil {
		return drainErr
	}
	if werr != nil {
		return werr
	}
	return ctx.Err()
}

// drain writes the buffered records of a class and folds its counters into stats.
func (e *Extractor) drain(c *program.Class, res *classResult, stats *Stats) error {
	for _, r := range res.records {
		if err := e.sink.Write(r); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	for _, sk := range res.skips {
		e.progress.OnMethodSkipped(sk.signature, sk.err)
	}
	stats.Methods += res.methods
	stats.Records += len(res.records)
	stats.Matched += res.matched
	stats.Skipped += len(res.skips)
	if res.sourceMissing {
		stats.SourcesMissing++
	}
	e.progress.OnClassProcessed(c.Name, len(res.records))
	return nil
}

// processClass derives the records of every method of c into res. It only
// fails when ctx is cancelled.
func (e *Extractor) processClass(ctx context.Context, c *program.Class, res *classResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unit, err := e.tree.Load(ctx, c.Name)
	if err != nil {
		res.sourceMissing = true
	}

	for _, m := range c.Methods {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.methods++

		rec, matched, err := e.processMethod(ctx, m, unit)
		if err != nil {
			log.Printf("Skipping method due to error: %v\n", err)
			res.skips = append(res.skips, skip{signature: m.Signature, err: err})
			continue
		}
		if matched {
			res.matched++
		}
		res.records = append(res.records, rec)
	}
	return nil
}

func (e *Extractor) processMethod(ctx context.Context, m *program.Method, unit *source.Unit) (rec dataset.Record, matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %s: %v", ErrMethodPanic, m.Signature, r)
		}
	}()

	match, matched := correlate.Locate(m, unit)

	// Probes run to completion; cancellation is checked between methods.
	edges := e.prober.Probe(context.WithoutCancel(ctx), m)

	rec, err = dataset.Assemble(m, match, edges)
	if err != nil {
		return dataset.Record{}, false, fmt.Errorf("%s: %w", m.Signature, err)
	}
	return rec, matched, nil
}
