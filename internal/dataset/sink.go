package dataset

import "errors"

// Sink receives records in output order.
type Sink interface {
	Write(r Record) error
	Close() error
}

// Aborter is implemented by sinks that can discard a failed run instead of
// finalizing it.
type Aborter interface {
	Abort() error
}

// MultiSink fans every record out to several sinks.
type MultiSink []Sink

// Write writes r to every sink, stopping at the first failure.
func (m MultiSink) Write(r Record) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Abort discards a failed run: sinks implementing Aborter are aborted, the
// rest are closed. Errors are joined.
func (m MultiSink) Abort() error {
	var errs []error
	for _, s := range m {
		var err error
		if a, ok := s.(Aborter); ok {
			err = a.Abort()
		} else {
			err = s.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
