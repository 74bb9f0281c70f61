package parser

// class is a bit set describing the roles a byte plays under a Config.
// A byte may carry several roles at once (escape usually equals quote).
type class uint8

const (
	classQuote class = 1 << iota
	classEscape
	classDelimiter
	classNewline
	classCR
	classComment
	classSpace
)

// classTable maps every byte value to its roles. It is built once per
// session so the scanner never compares against the configuration in its
// inner loop.
type classTable [256]class

// newClassTable builds the lookup table for cfg.
func newClassTable(cfg Config) *classTable {
	var t classTable

	t[cfg.Quote] |= classQuote
	t[cfg.Escape] |= classEscape
	t[cfg.Delimiter] |= classDelimiter
	t[cfg.Newline] |= classNewline
	t['\r'] |= classCR
	if cfg.Comments {
		t[cfg.Comment] |= classComment
	}
	// A space delimiter must keep separating fields next to quotes.
	if cfg.Delimiter != ' ' {
		t[' '] |= classSpace
	}

	return &t
}

// is reports whether byte c has role k.
func (t *classTable) is(c byte, k class) bool {
	return t[c]&k != 0
}
