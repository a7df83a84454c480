package extractor

// ProgressReporter provides callbacks for reporting extraction progress.
// Implementations can display progress bars, log messages, or remain silent.
// Callbacks are invoked from the goroutine that calls Run.
type ProgressReporter interface {
	// OnLoadStart is called before the class directory is read.
	OnLoadStart(classesDir string)

	// OnLoadComplete is called with the number of loaded and selected classes.
	OnLoadComplete(loaded, selected int)

	// OnClassProcessed is called after the records of a class are written.
	OnClassProcessed(className string, records int)

	// OnMethodSkipped is called for every method dropped because of an error.
	OnMethodSkipped(signature string, err error)

	// OnComplete is called when extraction completes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnLoadStart(classesDir string)                  {}
func (n *NoOpProgressReporter) OnLoadComplete(loaded, selected int)            {}
func (n *NoOpProgressReporter) OnClassProcessed(className string, records int) {}
func (n *NoOpProgressReporter) OnMethodSkipped(signature string, err error)    {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)                        {}
