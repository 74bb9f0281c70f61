// Package parser implements the streaming byte scanner behind pkg/csv.
//
// A Session owns one read: it carries the unconsumed tail of each chunk over
// to the next one, runs the Scanner state machine over the joined bytes,
// passes completed lines through the range Gate and hands admitted lines to
// the Assembler, which enforces strict widths and establishes headers.
//
// The package works on single-byte configuration values only; option
// parsing and validation live in pkg/csv.
package parser

// Config is the resolved, byte-level configuration of a session.
type Config struct {
	// Strict turns trailing delimiters, width mismatches and unterminated
	// quotes into errors.
	Strict bool

	Quote     byte
	Escape    byte
	Delimiter byte
	Newline   byte
	Comment   byte

	// Comments enables comment recognition for the Comment byte.
	Comments bool

	// Headers makes the first logical line the header set.
	Headers bool
	// HeaderNames, when non-empty, is a fixed header set; the first line is
	// then treated as data.
	HeaderNames []string
	// MapHeaders transforms a header row read from the input before it is
	// frozen.
	MapHeaders func([]string) []string

	// Start is the first logical line to emit (1-based, inclusive).
	Start int
	// End is the logical line where emission stops (exclusive). 0 means no end.
	End int
}

// DefaultConfig returns the byte-level defaults.
func DefaultConfig() Config {
	return Config{
		Quote:     '"',
		Escape:    '"',
		Delimiter: ',',
		Newline:   '\n',
		Comment:   '#',
		Comments:  true,
		Start:     1,
	}
}

// headerMode reports whether rows are keyed by a header set.
func (c Config) headerMode() bool {
	return c.Headers || len(c.HeaderNames) > 0
}

// headerFromInput reports whether the first logical line is the header set.
func (c Config) headerFromInput() bool {
	return c.Headers && len(c.HeaderNames) == 0
}
