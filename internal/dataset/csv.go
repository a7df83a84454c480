package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVWriter writes the fixed header followed by one fully quoted line per record.
type CSVWriter struct {
	w      *bufio.Writer
	closer io.Closer
	path   string
}

// CreateCSV creates (or truncates) the file at path and writes the header.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w, err := NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	w.path = path
	return w, nil
}

// NewCSVWriter writes the header to out. Close flushes but does not close out.
func NewCSVWriter(out io.Writer) (*CSVWriter, error) {
	w := &CSVWriter{w: bufio.NewWriter(out)}
	if _, err := w.w.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// Path returns the output file path, or "" for writer-backed output.
func (w *CSVWriter) Path() string {
	return w.path
}

// Write appends one record. Every field is quoted and embedded quotes are doubled.
func (w *CSVWriter) Write(r Record) error {
	var line strings.Builder
	for i, field := range r.Fields() {
		if i > 0 {
			line.WriteByte(',')
		}
		line.WriteByte('"')
		line.WriteString(strings.ReplaceAll(field, `"`, `""`))
		line.WriteByte('"')
	}
	line.WriteByte('\n')
	if _, err := w.w.WriteString(line.String()); err != nil {
		return fmt.Errorf("failed to write record %s: %w", r.FQN, err)
	}
	return nil
}

// Close flushes buffered output and closes the file if the writer owns it.
func (w *CSVWriter) Close() error {
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
