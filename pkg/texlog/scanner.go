package texlog

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// DefaultMaxPrintLine is the column at which TeX hard-wraps console output.
const DefaultMaxPrintLine = 79

// Scanner walks the lines of one log. Rules read the current line, peek
// ahead, and Skip the lines they consume.
type Scanner struct {
	lines []string
	pos   int
	files fileStack
}

func newScanner(raw string, maxPrintLine int) *Scanner {
	return &Scanner{lines: splitLines(raw, maxPrintLine)}
}

// Line returns the line under the cursor.
func (s *Scanner) Line() string {
	if s.pos >= len(s.lines) {
		return ""
	}
	return s.lines[s.pos]
}

// Peek returns the line n positions after the cursor.
func (s *Scanner) Peek(n int) (string, bool) {
	i := s.pos + n
	if n < 0 || i >= len(s.lines) {
		return "", false
	}
	return s.lines[i], true
}

// Skip consumes n lines after the current one.
func (s *Scanner) Skip(n int) {
	s.pos += n
	if s.pos >= len(s.lines) {
		s.pos = len(s.lines) - 1
	}
}

// Span returns the current line and the n lines after it joined by newlines.
func (s *Scanner) Span(n int) string {
	end := s.pos + n + 1
	if end > len(s.lines) {
		end = len(s.lines)
	}
	return strings.Join(s.lines[s.pos:end], "\n")
}

// File returns the innermost input file the engine has open, or "".
func (s *Scanner) File() string {
	return s.files.current()
}

func (s *Scanner) done() bool {
	return s.pos >= len(s.lines)
}

// splitLines normalizes raw engine output into logical lines: ANSI
// sequences and control bytes are removed and lines hard-wrapped at
// maxPrintLine are joined back together.
func splitLines(raw string, maxPrintLine int) []string {
	if raw == "" {
		return nil
	}
	if maxPrintLine == 0 {
		maxPrintLine = DefaultMaxPrintLine
	}

	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))

	var pending strings.Builder
	wrapped := false
	for _, part := range parts {
		part = stripControl(stripEscapes(part))
		if !wrapped {
			pending.Reset()
		}
		pending.WriteString(part)

		if maxPrintLine > 0 && (len(part) == maxPrintLine || utf8.RuneCountInString(part) == maxPrintLine) {
			wrapped = true
			continue
		}
		lines = append(lines, pending.String())
		wrapped = false
	}
	if wrapped {
		lines = append(lines, pending.String())
	}
	return lines
}

// stripEscapes removes ANSI sequences. Lines without ESC are returned as
// is so 8-bit text in other encodings is never reinterpreted as UTF-8.
func stripEscapes(s string) string {
	if strings.IndexByte(s, 0x1b) < 0 {
		return s
	}
	return ansi.Strip(s)
}

// stripControl drops C0 control bytes other than tab, and DEL. All other
// bytes are copied unchanged, including invalid UTF-8.
func stripControl(s string) string {
	i := 0
	for i < len(s) && !isControl(s[i]) {
		i++
	}
	if i == len(s) {
		return s
	}

	b := make([]byte, 0, len(s))
	b = append(b, s[:i]...)
	for ; i < len(s); i++ {
		if !isControl(s[i]) {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func isControl(c byte) bool {
	return (c < 0x20 && c != '\t') || c == 0x7f
}
