package parser

// Stats summarizes a session.
type Stats struct {
	// Bytes is the number of input bytes accepted.
	Bytes int64
	// Physical is the number of physical lines completed.
	Physical int
	// Logical is the number of logical lines completed.
	Logical int
	// Rows is the number of data rows handed to the Handler.
	Rows int
	// Stopped is set when the range end cut the input short.
	Stopped bool
}

// Session drives one read. Chunks are pushed with Feed; the scanner keeps the
// state of an unfinished line, and only the few bytes it could not decide yet
// are carried over to the next chunk. Finish must be called once the input
// is exhausted.
//
// A Session is not safe for concurrent use.
type Session struct {
	scanner  *Scanner
	gate     Gate
	asm      *Assembler
	carry    []byte
	bytes    int64
	stopped  bool
	finished bool
	failed   bool
}

// NewSession creates a session for cfg reporting to h.
func NewSession(cfg Config, h Handler) *Session {
	s := &Session{
		gate: NewGate(cfg),
		asm:  NewAssembler(cfg, h),
	}
	s.scanner = NewScanner(cfg, s.line)
	return s
}

// Begin announces a fixed header set and checks for an empty range. It must
// be called before the first Feed.
func (s *Session) Begin() {
	s.asm.Begin()
	if s.gate.Empty() {
		s.stopped = true
	}
}

// Feed scans chunk after the bytes carried over from the previous call. Chunks arriving after the session is done are ignored.
func (s *Session) Feed(chunk []byte) error {
	if s.Done() {
		return nil
	}
	s.bytes += int64(len(chunk))

	s.carry = append(s.carry, chunk...)
	rest, err := s.scanner.Scan(s.carry, false)
	if err != nil {
		s.failed = true
		return err
	}
	s.carry = s.carry[:copy(s.carry, rest)]
	return nil
}

// Finish scans the carried-over tail as the final line.
func (s *Session) Finish() error {
	if s.Done() {
		return nil
	}
	s.finished = true

	_, err := s.scanner.Scan(s.carry, true)
	s.carry = s.carry[:0]
	if err != nil {
		s.failed = true
	}
	return err
}

// Done reports whether the session wants no more input.
func (s *Session) Done() bool {
	return s.stopped || s.finished || s.failed
}

// Stopped reports whether the range end was reached before the input ended.
func (s *Session) Stopped() bool {
	return s.stopped
}

// Headers returns the header set, or nil if none is established.
func (s *Session) Headers() []string {
	return s.asm.Headers()
}

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats {
	return Stats{
		Bytes:    s.bytes,
		Physical: s.scanner.Physical(),
		Logical:  s.scanner.Logical(),
		Rows:     s.asm.Rows(),
		Stopped:  s.stopped,
	}
}

// Release returns pooled buffers.
func (s *Session) Release() {
	s.scanner.Release()
	s.carry = nil
}

// line is the scanner callback: gate first, then assembly.
func (s *Session) line(fields []string, ln Line) (bool, error) {
	if s.gate.Admit(ln.Logical) {
		if err := s.asm.Assemble(fields, ln); err != nil {
			return false, err
		}
	}
	if s.gate.Done(ln.Logical) {
		s.stopped = true
		return false, nil
	}
	return true, nil
}
