package parser

import (
	"errors"
	"fmt"
)

// Structural errors raised while scanning. They are always wrapped in a
// *ParseError carrying the physical line number.
var (
	// ErrTrailingDelimiter indicates a delimiter directly before a line
	// terminator in strict mode.
	ErrTrailingDelimiter = errors.New("trailing delimiter")

	// ErrFieldCount indicates a row whose width differs from the first row
	// in strict mode.
	ErrFieldCount = errors.New("wrong number of fields")

	// ErrUnterminatedQuote indicates the input ended inside a quoted field
	// in strict mode.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
)

// ParseError reports a structural problem on a physical line.
type ParseError struct {
	// Line is the 1-based physical line number.
	Line int
	// Got is the number of columns found (ErrFieldCount only).
	Got int
	// Want is the number of columns expected (ErrFieldCount only).
	Want int
	// Err is the underlying sentinel error.
	Err error
}

// Error returns a message naming the offending line.
func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTrailingDelimiter):
		return fmt.Sprintf("Trailing delimiter found at the end of line %d", e.Line)
	case errors.Is(e.Err, ErrFieldCount):
		return fmt.Sprintf("Line %d has %d columns but %d were expected", e.Line, e.Got, e.Want)
	default:
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
