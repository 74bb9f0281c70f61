package csv

import (
	"regexp"
	"strings"
	"unicode"
)

// candidateDelimiters are tried in order; earlier entries win ties.
var candidateDelimiters = []byte{',', '\t', ';', '|'}

var (
	headerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`),       // snake_case or identifier
		regexp.MustCompile(`^[a-zA-Z]+[A-Z][a-zA-Z]*$`),      // camelCase
		regexp.MustCompile(`^[A-Z][a-z]+([ ][A-Z][a-z]+)*$`), // Title Case
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	}
)

// Sniffer guesses the dialect of a sample: its delimiter and whether the
// first line is a header. The CLI uses it for -delimiter auto.
type Sniffer struct {
	lines     []string
	quote     byte
	delimiter string
	hasHeader bool
	analyzed  bool
}

// NewSniffer creates a Sniffer for a sample of the input. For best results,
// provide at least 2-3 lines. Comment and blank lines are ignored.
func NewSniffer(sample string) *Sniffer {
	s := &Sniffer{quote: '"'}
	for _, line := range strings.Split(sample, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.lines = append(s.lines, line)
	}
	return s
}

func (s *Sniffer) analyze() {
	if s.analyzed {
		return
	}
	s.delimiter = s.detectDelimiter()
	s.hasHeader = s.detectHeader()
	s.analyzed = true
}

// DetectDelimiter returns the most likely delimiter, "," when nothing
// matches. Comma, tab, semicolon and pipe are considered.
func (s *Sniffer) DetectDelimiter() string {
	s.analyze()
	return s.delimiter
}

// HasHeader reports whether the first line looks like a header.
func (s *Sniffer) HasHeader() bool {
	s.analyze()
	return s.hasHeader
}

// detectDelimiter scores each candidate by its count on the first line, with
// a bonus when every line agrees.
func (s *Sniffer) detectDelimiter() string {
	best, bestScore := byte(','), 0
	for _, delim := range candidateDelimiters {
		if len(s.lines) == 0 {
			break
		}

		first := s.count(s.lines[0], delim)
		if first == 0 {
			continue
		}
		score := first * 10
		for _, line := range s.lines[1:] {
			if s.count(line, delim) != first {
				score = first
				break
			}
		}

		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return string(best)
}

// count counts delimiters outside quoted sections.
func (s *Sniffer) count(line string, delim byte) int {
	n := 0
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case s.quote:
			quoted = !quoted
		case delim:
			if !quoted {
				n++
			}
		}
	}
	return n
}

// detectHeader compares how header-like and data-like the first line is.
func (s *Sniffer) detectHeader() bool {
	if len(s.lines) < 2 {
		return false
	}

	headerScore, dataScore := 0, 0
	for _, field := range s.split(s.lines[0], s.delimiter[0]) {
		field = strings.Trim(strings.TrimSpace(field), string(s.quote))
		if isLikelyHeader(field) {
			headerScore++
		}
		if isLikelyData(field) {
			dataScore++
		}
	}
	return headerScore > dataScore
}

// split splits line on delim outside quoted sections.
func (s *Sniffer) split(line string, delim byte) []string {
	var fields []string
	quoted := false
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case s.quote:
			quoted = !quoted
		case delim:
			if !quoted {
				fields = append(fields, line[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, line[start:])
}

// isLikelyHeader checks if a field looks like a header name.
func isLikelyHeader(s string) bool {
	if s == "" || isNumeric(s) {
		return false
	}
	for _, pattern := range headerPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// isLikelyData checks if a field looks like data rather than a header.
func isLikelyData(s string) bool {
	if s == "" {
		return false
	}
	if isNumeric(s) || strings.Contains(s, "@") {
		return true
	}
	for _, pattern := range datePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// isNumeric checks if a string represents a decimal number.
func isNumeric(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	if s == "" {
		return false
	}

	hasDot := false
	for _, ch := range s {
		if ch == '.' {
			if hasDot {
				return false
			}
			hasDot = true
		} else if !unicode.IsDigit(ch) {
			return false
		}
	}
	return s != "."
}

// HeaderConverter transforms one header name.
type HeaderConverter func(string) string

// LowercaseHeader converts headers to lowercase.
func LowercaseHeader(s string) string {
	return strings.ToLower(s)
}

// UppercaseHeader converts headers to uppercase.
func UppercaseHeader(s string) string {
	return strings.ToUpper(s)
}

// TrimHeader strips surrounding whitespace.
func TrimHeader(s string) string {
	return strings.TrimSpace(s)
}

// SnakeCaseHeader converts headers to snake_case.
func SnakeCaseHeader(s string) string {
	var result strings.Builder
	prevWasSpace := false
	for i, ch := range s {
		if ch == ' ' {
			if result.Len() > 0 && !prevWasSpace {
				result.WriteRune('_')
			}
			prevWasSpace = true
			continue
		}
		if unicode.IsUpper(ch) && i > 0 && !prevWasSpace {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(ch))
		prevWasSpace = false
	}
	return result.String()
}

// MapHeadersWith builds a ReaderOptions.MapHeaders function applying the
// converters to every name, in order.
//
// Example:
//
//	opts := csv.ReaderOptions{
//	    Headers:    true,
//	    MapHeaders: csv.MapHeadersWith(csv.TrimHeader, csv.SnakeCaseHeader),
//	}
func MapHeadersWith(conv ...HeaderConverter) func([]string) []string {
	return func(headers []string) []string {
		for i, h := range headers {
			for _, c := range conv {
				h = c(h)
			}
			headers[i] = h
		}
		return headers
	}
}
