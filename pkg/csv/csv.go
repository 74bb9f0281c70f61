// Package csv decodes delimited text (CSV, TSV and similar dialects) from
// streaming sources.
//
// Input arrives in chunks of any size; a row split across chunks decodes the
// same as if it had arrived whole. Quote, escape, delimiter, newline and
// comment characters are configurable, a carriage return before the newline
// is always accepted, and a logical line range can stop the read early.
//
// # Thread Safety
//
// A Reader holds only resolved options. Every read allocates its own
// scanner state, so one Reader may serve concurrent reads.
//
// # Reading APIs
//
//   - ReadString / ReadBytes - decode input already in memory
//   - ReadFrom - decode an io.Reader chunk by chunk
//   - Read - decode any Source, e.g. a PushSource fed by another goroutine
//   - NewScanner / Rows - pull rows one at a time
//
// # Example usage with ReadString:
//
//	r, err := csv.NewReader(csv.ReaderOptions{Headers: true})
//	if err != nil {
//	    // handle error
//	}
//	result, err := r.ReadString(ctx, "name,age\nAlice,30\nBob,25")
//	if err != nil {
//	    // handle error
//	}
//	for _, row := range result.Rows {
//	    name, _ := row.GetByName("name")
//	    fmt.Println(name)
//	}
//
// # Example usage with callbacks:
//
//	r, _ := csv.NewReader(csv.ReaderOptions{
//	    Range: csv.NewRange(2, 100),
//	    OnRow: func(row csv.Row) error {
//	        fmt.Println(row.Line(), row.Fields())
//	        return nil
//	    },
//	})
//	_, err := r.ReadFrom(ctx, file)
//
// # Strict mode
//
// By default malformed input is decoded leniently: trailing delimiters are
// dropped and rows may have any width. With Strict set, trailing delimiters,
// rows whose width differs from the first row and unterminated quoted fields
// fail the read with a *ParseError.
package csv

import (
	"context"
	"io"
)

// ReadAll decodes rd with opts.
//
// Example:
//
//	file, _ := os.Open("data.csv")
//	defer file.Close()
//	result, err := csv.ReadAll(file, csv.ReaderOptions{Headers: true})
func ReadAll(rd io.Reader, opts ReaderOptions) (*Result, error) {
	r, err := NewReader(opts)
	if err != nil {
		return nil, err
	}
	return r.ReadFrom(context.Background(), rd)
}

// ReadString decodes s with opts. Surrounding whitespace is trimmed first.
//
// Example:
//
//	result, err := csv.ReadString("a,b\n1,2", csv.ReaderOptions{})
func ReadString(s string, opts ReaderOptions) (*Result, error) {
	r, err := NewReader(opts)
	if err != nil {
		return nil, err
	}
	return r.ReadString(context.Background(), s)
}
