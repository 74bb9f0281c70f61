package csv

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"dario.cat/mergo"

	"github.com/shapestone/shape-csvreader/internal/parser"
)

// DefaultChunkSize is the read size used for io.Reader sources.
const DefaultChunkSize = 32 * 1024

// ReaderOptions configures decoding. Zero values mean "use the default", so a
// partially filled ReaderOptions can be passed to NewReader directly.
type ReaderOptions struct {
	// Strict turns trailing delimiters, rows whose width differs from the
	// first row, and unterminated quoted fields into errors.
	// Default: false
	Strict bool

	// Headers makes the first logical line the header set. Rows then carry
	// the names for GetByName and Map.
	// Default: false
	Headers bool

	// HeaderNames is a fixed header set. When non-empty it implies header
	// mode and the first line of the input is data.
	HeaderNames []string

	// Quote encloses fields. Default: "
	Quote string

	// Escape, placed before a quote inside a quoted field, makes the quote
	// literal. Defaults to Quote.
	Escape string

	// Delimiter separates fields. Default: ,
	Delimiter string

	// Newline terminates lines. A carriage return directly before it is
	// consumed with it. Default: \n
	Newline string

	// Comment starts a comment that runs to the end of the line. Default: #
	Comment string

	// DisableComments turns comment recognition off.
	DisableComments bool

	// Range limits which logical lines are emitted.
	Range Range

	// MapHeaders transforms the header row read from the input before it is
	// frozen. It is not applied to HeaderNames.
	MapHeaders func([]string) []string

	// OnHeaders is called once with the header set, before any row.
	OnHeaders func(headers []string)

	// OnRow is called for every emitted row, in input order. Returning an
	// error aborts the read. When OnRow is set, Result.Rows stays empty.
	OnRow func(Row) error

	// Logger receives debug records for each read. nil discards them.
	Logger *slog.Logger

	// Metrics, when set, is updated after each read.
	Metrics *Metrics

	// ChunkSize is the read size for io.Reader sources.
	// Default: DefaultChunkSize
	ChunkSize int
}

// DefaultReaderOptions returns the default reader configuration.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		Quote:     `"`,
		Escape:    `"`,
		Delimiter: ",",
		Newline:   "\n",
		Comment:   "#",
		Range:     Range{Start: 1},
		ChunkSize: DefaultChunkSize,
	}
}

// Range selects logical lines: Start is inclusive, End exclusive, both
// 1-based. A zero End means "until the input ends".
type Range struct {
	Start int `mapstructure:"start" yaml:"start" toml:"start"`
	End   int `mapstructure:"end" yaml:"end" toml:"end"`
}

// NewRange builds a Range from up to two bounds: start, then end.
func NewRange(bounds ...int) Range {
	var r Range
	if len(bounds) > 0 {
		r.Start = bounds[0]
	}
	if len(bounds) > 1 {
		r.End = bounds[1]
	}
	return r
}

// ParseRange parses "start:end", where either side may be empty, or a single
// start value.
//
// Example:
//
//	r, _ := csv.ParseRange("2:4") // logical lines 2 and 3
func ParseRange(s string) (Range, error) {
	var r Range
	s = strings.TrimSpace(s)
	if s == "" {
		return r, nil
	}

	start, end, hasEnd := strings.Cut(s, ":")
	if v := strings.TrimSpace(start); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, fmt.Errorf("csv: invalid range start %q", v)
		}
		r.Start = n
	}
	if v := strings.TrimSpace(end); hasEnd && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return r, fmt.Errorf("csv: invalid range end %q", v)
		}
		r.End = n
	}
	return r, nil
}

// String formats r the way ParseRange reads it.
func (r Range) String() string {
	if r.End == 0 {
		return fmt.Sprintf("%d:", r.Start)
	}
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

// resolve merges supplied over the defaults and validates the outcome.
func resolve(supplied ReaderOptions) (ReaderOptions, error) {
	opts := DefaultReaderOptions()
	if err := mergo.Merge(&opts, supplied, mergo.WithOverride); err != nil {
		return ReaderOptions{}, fmt.Errorf("csv: merge options: %w", err)
	}

	// A custom quote doubles as the escape unless one was given.
	if supplied.Quote != "" && supplied.Escape == "" {
		opts.Escape = opts.Quote
	}

	if err := opts.Validate(); err != nil {
		return ReaderOptions{}, err
	}
	return opts, nil
}

// Validate checks a fully resolved option set.
func (o ReaderOptions) Validate() error {
	chars := []struct {
		field string
		value string
	}{
		{"Quote", o.Quote},
		{"Escape", o.Escape},
		{"Delimiter", o.Delimiter},
		{"Newline", o.Newline},
		{"Comment", o.Comment},
	}
	for _, c := range chars {
		if err := validChar(c.field, c.value); err != nil {
			return err
		}
	}

	switch {
	case o.Delimiter == o.Quote:
		return &OptionsError{Field: "Delimiter", Message: "same as quote"}
	case o.Delimiter == o.Newline:
		return &OptionsError{Field: "Delimiter", Message: "same as newline"}
	case o.Newline == o.Quote:
		return &OptionsError{Field: "Newline", Message: "same as quote"}
	case o.Newline == "\r":
		return &OptionsError{Field: "Newline", Message: "carriage return is always recognized before the newline"}
	}

	if !o.DisableComments {
		switch o.Comment {
		case o.Delimiter:
			return &OptionsError{Field: "Comment", Message: "same as delimiter"}
		case o.Quote:
			return &OptionsError{Field: "Comment", Message: "same as quote"}
		case o.Newline:
			return &OptionsError{Field: "Comment", Message: "same as newline"}
		}
	}

	if o.Range.Start < 0 {
		return &OptionsError{Field: "Range", Message: "negative start"}
	}
	if o.Range.End < 0 {
		return &OptionsError{Field: "Range", Message: "negative end"}
	}
	if o.ChunkSize < 0 {
		return &OptionsError{Field: "ChunkSize", Message: "negative size"}
	}
	return nil
}

// validChar reports whether s is exactly one single-byte character.
func validChar(field, s string) error {
	switch {
	case utf8.RuneCountInString(s) != 1:
		return &OptionsError{Field: field, Message: fmt.Sprintf("%q must be exactly one character", s)}
	case len(s) != 1:
		return &OptionsError{Field: field, Message: fmt.Sprintf("%q must be a single-byte character", s)}
	}
	return nil
}

// config projects resolved options onto the scanner configuration.
func (o ReaderOptions) config() parser.Config {
	return parser.Config{
		Strict:      o.Strict,
		Quote:       o.Quote[0],
		Escape:      o.Escape[0],
		Delimiter:   o.Delimiter[0],
		Newline:     o.Newline[0],
		Comment:     o.Comment[0],
		Comments:    !o.DisableComments,
		Headers:     o.Headers,
		HeaderNames: o.HeaderNames,
		MapHeaders:  o.MapHeaders,
		Start:       o.Range.Start,
		End:         o.Range.End,
	}
}

// headerMode reports whether rows are keyed by a header set.
func (o ReaderOptions) headerMode() bool {
	return o.Headers || len(o.HeaderNames) > 0
}
