package parser

// Gate decides which logical lines reach the assembler and when a session
// may stop reading. Lines are numbered from 1; Start is inclusive and End
// exclusive, with End == 0 meaning "until the input ends".
//
// In header-from-input mode the header is logical line 1 and is always
// admitted, so a range that skips the first data lines still yields keyed
// rows.
type Gate struct {
	start  int
	end    int
	header bool
}

// NewGate creates the gate for cfg.
func NewGate(cfg Config) Gate {
	start := cfg.Start
	if start < 1 {
		start = 1
	}
	return Gate{
		start:  start,
		end:    cfg.End,
		header: cfg.headerFromInput(),
	}
}

// Admit reports whether logical line n is assembled.
func (g Gate) Admit(n int) bool {
	if g.end > 0 && n >= g.end {
		return false
	}
	return n >= g.start || (g.header && n == 1)
}

// Done reports whether nothing after logical line n can be admitted.
func (g Gate) Done(n int) bool {
	if g.end == 0 {
		return false
	}
	if n+1 >= g.end {
		return true
	}
	// An empty range only needs the header line, if any.
	return g.end <= g.start && (!g.header || n >= 1)
}

// Empty reports whether no line can ever be admitted, so the source need
// not be read at all.
func (g Gate) Empty() bool {
	return g.Done(0)
}
