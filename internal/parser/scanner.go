package parser

// Line identifies a completed line by its physical position (every line
// terminator outside quotes counts) and its logical position (non-blank,
// non-comment-only lines only).
type Line struct {
	Physical int
	Logical  int
}

// LineFunc receives every completed logical line. Returning more == false
// stops the scanner; all later bytes are ignored.
type LineFunc func(fields []string, line Line) (more bool, err error)

// Scanner is the byte-level state machine. It turns a buffer into completed
// lines and returns the few trailing bytes it could not decide yet, which the
// caller prefixes to the next chunk.
//
// The state of a partially scanned line survives between Scan calls, so every
// byte is examined once. A byte is only decided when the lookahead it may
// need (at most lookahead bytes) is inside the buffer or the input has ended,
// which makes the output independent of how the input was chunked.
type Scanner struct {
	cfg     Config
	classes *classTable
	onLine  LineFunc

	quoted    bool
	escaped   bool
	commented bool
	cell      []byte
	row       []string
	width     int

	// prev is the byte before the next one to scan.
	prev    byte
	hasPrev bool

	physical int
	logical  int
	stopped  bool
}

// lookahead is the number of bytes after the current one that a decision may
// look at: a closing quote or a delimiter followed by CR LF.
const lookahead = 2

// NewScanner creates a scanner that reports lines to onLine.
func NewScanner(cfg Config, onLine LineFunc) *Scanner {
	return &Scanner{
		cfg:     cfg,
		classes: newClassTable(cfg),
		onLine:  onLine,
		cell:    getCell(),
	}
}

// Physical returns the number of physical lines completed so far.
func (s *Scanner) Physical() int {
	return s.physical
}

// Logical returns the number of logical lines completed so far.
func (s *Scanner) Logical() int {
	return s.logical
}

// Stopped reports whether the line callback asked to stop.
func (s *Scanner) Stopped() bool {
	return s.stopped
}

// Release returns pooled buffers. The scanner must not be used afterwards.
func (s *Scanner) Release() {
	if s.cell != nil {
		putCell(s.cell)
		s.cell = nil
	}
}

// Scan processes buf and returns its undecided tail, at most lookahead bytes.
// With atEOF set, the end of buf also ends the last line and nothing is
// returned.
func (s *Scanner) Scan(buf []byte, atEOF bool) ([]byte, error) {
	if s.stopped {
		return nil, nil
	}

	t := s.classes
	n := len(buf)
	limit := n
	if !atEOF {
		limit = max(n-lookahead, 0)
	}

	i := 0
	for ; i < limit; i++ {
		c := buf[i]
		eol := s.terminatorAt(buf, i, atEOF)

		// Comments run to the end of the line; the terminator itself is
		// still processed below.
		if s.commented {
			if !eol {
				continue
			}
			s.commented = false
		} else if !s.quoted && t.is(c, classComment) {
			s.commented = true
			continue
		}

		if t.is(c, classQuote) {
			if !s.quoted && len(s.cell) == 0 {
				s.quoted = true
				continue
			}

			if s.quoted && !s.escaped {
				// A doubled quote is a literal quote.
				if i+1 < n && t.is(buf[i+1], classQuote) {
					s.escaped = true
					continue
				}

				s.quoted = false
				// "" right before the line end is an explicit empty field.
				if len(s.cell) == 0 && s.lineEndsAt(buf, i+1, atEOF) {
					s.row = append(s.row, "")
				}
				continue
			}
		}

		if !s.quoted && t.is(c, classSpace) &&
			(s.quoteBefore(buf, i) || (i+1 < n && t.is(buf[i+1], classQuote))) {
			continue
		}

		if s.quoted && !s.escaped && !t.is(c, classQuote) && t.is(c, classEscape) &&
			i+1 < n && t.is(buf[i+1], classQuote) {
			s.escaped = true
			continue
		}

		if !s.quoted {
			if t.is(c, classDelimiter) {
				if s.cfg.Strict && s.lineEndsAt(buf, i+1, atEOF) {
					return nil, &ParseError{Line: s.physical + 1, Err: ErrTrailingDelimiter}
				}
				s.row = append(s.row, string(s.cell))
				s.cell = s.cell[:0]
				continue
			}

			if eol {
				// CR LF is one terminator.
				if t.is(c, classCR) && i+1 < n && t.is(buf[i+1], classNewline) {
					i++
				}

				more, err := s.endLine()
				if err != nil {
					return nil, err
				}
				if !more {
					s.stopped = true
					return nil, nil
				}
				continue
			}
		}

		s.cell = append(s.cell, c)
		s.escaped = false
	}

	if i > 0 {
		s.prev, s.hasPrev = buf[i-1], true
	}
	if !atEOF {
		return buf[i:], nil
	}
	return nil, s.finish()
}

// quoteBefore reports whether the byte before buf[i] is a quote, looking
// back into the previous call's buffer at i == 0.
func (s *Scanner) quoteBefore(buf []byte, i int) bool {
	if i > 0 {
		return s.classes.is(buf[i-1], classQuote)
	}
	return s.hasPrev && s.classes.is(s.prev, classQuote)
}

// finish completes a final line that has no terminator.
func (s *Scanner) finish() error {
	if s.quoted && s.cfg.Strict {
		return &ParseError{Line: s.physical + 1, Err: ErrUnterminatedQuote}
	}
	if len(s.row) == 0 && len(s.cell) == 0 {
		return nil
	}

	more, err := s.endLine()
	if !more {
		s.stopped = true
	}
	return err
}

// endLine flushes the pending cell and hands the row over. Blank lines only
// advance the physical counter.
func (s *Scanner) endLine() (bool, error) {
	s.physical++

	if len(s.row) == 0 && len(s.cell) == 0 {
		return true, nil
	}
	if len(s.cell) > 0 {
		s.row = append(s.row, string(s.cell))
		s.cell = s.cell[:0]
	}

	s.logical++
	row := s.row
	s.width = len(row)
	s.row = make([]string, 0, s.width)

	return s.onLine(row, Line{Physical: s.physical, Logical: s.logical})
}

// terminatorAt reports whether a line terminator starts at buf[i]. A lone CR
// only terminates a line as the very last byte of the input.
func (s *Scanner) terminatorAt(buf []byte, i int, atEOF bool) bool {
	c := buf[i]
	if s.classes.is(c, classNewline) {
		return true
	}
	if s.classes.is(c, classCR) {
		if i+1 < len(buf) {
			return s.classes.is(buf[i+1], classNewline)
		}
		return atEOF
	}
	return false
}

// lineEndsAt reports whether the line ends at position j, i.e. j is past the
// end of the input or a terminator starts there.
func (s *Scanner) lineEndsAt(buf []byte, j int, atEOF bool) bool {
	if j >= len(buf) {
		return atEOF
	}
	return s.terminatorAt(buf, j, atEOF)
}
