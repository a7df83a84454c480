package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/javacorpus/internal/extractor"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet     bool
	out       io.Writer
	classBar  *progressbar.ProgressBar
	startTime time.Time
	skipped   int
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnLoadStart(classesDir string) {
	if c.quiet {
		return
	}
	log.Printf("Loading classes from %s...\n", classesDir)
}

func (c *CLIProgressReporter) OnLoadComplete(loaded, selected int) {
	if c.quiet {
		return
	}
	log.Printf("Processing %s of %s classes\n", formatNumber(selected), formatNumber(loaded))

	c.classBar = progressbar.NewOptions(selected,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting methods"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("classes/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnClassProcessed(className string, records int) {
	if c.quiet {
		return
	}
	if c.classBar != nil {
		c.classBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnMethodSkipped(signature string, err error) {
	c.skipped++
}

func (c *CLIProgressReporter) OnComplete(stats *extractor.Stats) {
	if c.quiet {
		return
	}
	if c.classBar != nil {
		c.classBar.Finish()
		c.classBar = nil
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Extracted %s records from %s methods in %.1fs\n",
		formatNumber(stats.Records), formatNumber(stats.Methods), stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Matched to source: %s\n", formatNumber(stats.Matched))
	fmt.Fprintf(c.out, "  Skipped methods:   %s\n", formatNumber(c.skipped))
	fmt.Fprintf(c.out, "  Missing sources:   %s\n", formatNumber(stats.SourcesMissing))
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
