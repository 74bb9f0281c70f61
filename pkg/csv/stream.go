package csv

import (
	"context"
	"iter"
)

// Scanner provides a streaming interface for reading rows one at a time.
// Chunks are pulled from the source only when the rows of the previous
// chunk are used up, so memory stays bounded by the chunk size.
//
// Example usage:
//
//	file, _ := os.Open("data.csv")
//
//	r, _ := csv.NewReader(csv.ReaderOptions{Headers: true})
//	scanner := r.NewScanner(ctx, csv.NewReaderSource(file, 0))
//	defer scanner.Close()
//	for scanner.Scan() {
//	    row := scanner.Row()
//	    name, _ := row.GetByName("name")
//	    fmt.Println(name)
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	ctx     context.Context
	d       *decode
	pending []Row
	row     Row
	err     error
	closed  bool
}

// NewScanner creates a Scanner reading src. OnHeaders and OnRow, if set,
// still fire as rows are decoded.
func (r *Reader) NewScanner(ctx context.Context, src Source) *Scanner {
	return &Scanner{
		ctx: ctx,
		d:   r.start(ctx, src, true),
	}
}

// Scan advances the scanner to the next row.
// It returns false when there are no more rows or an error occurs.
// After Scan returns false, the Err method will return any error that occurred.
func (s *Scanner) Scan() bool {
	for len(s.pending) == 0 {
		if s.closed {
			return false
		}

		done, err := s.d.step(s.ctx)
		s.pending = s.d.sink.take()
		if done {
			s.err = s.d.finish(s.ctx, err)
			s.closed = true
		}
	}

	s.row = s.pending[0]
	s.pending = s.pending[1:]
	return true
}

// Row returns the current row.
// This should only be called after Scan() returns true.
func (s *Scanner) Row() Row {
	return s.row
}

// Headers returns the header set once it has been read, or nil.
func (s *Scanner) Headers() []string {
	return s.d.sink.headers
}

// Err returns the error, if any, that was encountered during scanning.
// It returns nil if no error occurred or at EOF.
func (s *Scanner) Err() error {
	return s.err
}

// Close stops the source if the input was not fully consumed. It is safe to
// call Close after Scan returned false.
func (s *Scanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	s.d.src.Stop()
	return s.d.finish(s.ctx, nil)
}

// Rows returns an iterator over the rows of src. Stopping the iteration early
// stops the source. A decoding error is yielded once, with a zero Row.
//
// Example:
//
//	for row, err := range r.Rows(ctx, src) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(row.Fields())
//	}
func (r *Reader) Rows(ctx context.Context, src Source) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		sc := r.NewScanner(ctx, src)
		defer sc.Close()

		for sc.Scan() {
			if !yield(sc.Row(), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Row{}, err)
		}
	}
}
