package csv

import (
	"errors"

	"github.com/shapestone/shape-csvreader/internal/parser"
)

// ParseError reports a structural problem on a physical line. It wraps one of
// ErrTrailingDelimiter, ErrFieldCount or ErrUnterminatedQuote.
//
// Example:
//
//	var perr *csv.ParseError
//	if errors.As(err, &perr) {
//	    fmt.Println("bad line", perr.Line)
//	}
type ParseError = parser.ParseError

// Structural errors, only raised in strict mode.
var (
	// ErrTrailingDelimiter indicates a delimiter directly before a line end.
	ErrTrailingDelimiter = parser.ErrTrailingDelimiter

	// ErrFieldCount indicates a row whose width differs from the first row.
	ErrFieldCount = parser.ErrFieldCount

	// ErrUnterminatedQuote indicates the input ended inside a quoted field.
	ErrUnterminatedQuote = parser.ErrUnterminatedQuote
)

// Source errors.
var (
	// ErrSourceStopped is returned by a source that was stopped because the
	// read no longer needs input.
	ErrSourceStopped = errors.New("csv: source stopped")

	// ErrSourceClosed is returned by Push after Close.
	ErrSourceClosed = errors.New("csv: push to closed source")
)

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "csv: invalid " + e.Field + ": " + e.Message
}
