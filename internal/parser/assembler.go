package parser

import "slices"

// Handler receives the output of an Assembler.
type Handler interface {
	// Headers is called once with the frozen header set.
	Headers(names []string)
	// Row is called for every data row. headers is nil in raw mode.
	Row(fields, headers []string, line Line) error
}

// Assembler applies strict width checks to admitted lines, establishes the
// header set and forwards data rows to a Handler.
type Assembler struct {
	strict     bool
	width      int
	widthSet   bool
	fromInput  bool
	mapHeaders func([]string) []string
	headers    []string
	announced  bool
	rows       int
	h          Handler
}

// NewAssembler creates an assembler for cfg.
func NewAssembler(cfg Config, h Handler) *Assembler {
	a := &Assembler{
		strict:     cfg.Strict,
		fromInput:  cfg.headerFromInput(),
		mapHeaders: cfg.MapHeaders,
		h:          h,
	}
	if len(cfg.HeaderNames) > 0 {
		a.headers = slices.Clone(cfg.HeaderNames)
	}
	return a
}

// Begin announces a fixed header set before any input is read.
func (a *Assembler) Begin() {
	if a.headers != nil && !a.announced {
		a.announced = true
		a.h.Headers(a.headers)
	}
}

// Rows returns the number of data rows forwarded so far.
func (a *Assembler) Rows() int {
	return a.rows
}

// Headers returns the header set, or nil if none is established yet.
func (a *Assembler) Headers() []string {
	return a.headers
}

// Assemble processes one admitted line.
func (a *Assembler) Assemble(fields []string, line Line) error {
	if a.strict {
		if !a.widthSet {
			a.width = len(fields)
			a.widthSet = true
		} else if len(fields) != a.width {
			return &ParseError{Line: line.Physical, Got: len(fields), Want: a.width, Err: ErrFieldCount}
		}
	}

	if a.fromInput && !a.announced {
		headers := fields
		if a.mapHeaders != nil {
			headers = a.mapHeaders(slices.Clone(fields))
		}
		if headers == nil {
			headers = []string{}
		}
		a.headers = headers
		a.announced = true
		a.h.Headers(headers)
		return nil
	}

	if err := a.h.Row(fields, a.headers, line); err != nil {
		return err
	}
	a.rows++
	return nil
}
