package texlog

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule recognizes one kind of diagnostic. Apply looks at the scanner's
// current line and, on a match, returns the diagnostic after skipping any
// follow-up lines it consumed. A rule that does not match must leave the
// cursor alone; the parser restores it regardless.
type Rule interface {
	Name() string
	Apply(s *Scanner) (Diagnostic, bool)
}

const (
	// errorLookahead is how far past a "!" line the l.<N> marker is searched for.
	errorLookahead = 16

	// boxContextLines bounds the box contents printed after an over/underfull line.
	boxContextLines = 4
)

var (
	lineMarkerRe    = regexp.MustCompile(`^l\.(\d+)`)
	inputLineRe     = regexp.MustCompile(`\bon input line (\d+)`)
	linesRe         = regexp.MustCompile(`\blines? (\d+)`)
	fileLineErrorRe = regexp.MustCompile(`^((?:[A-Za-z]:)?[^\s:()]*\.[A-Za-z][A-Za-z0-9]+):(\d+): (.+)$`)
	warningRe       = regexp.MustCompile(`^(LaTeX|Package|Class|Module)(?: (\S+))? Warning: (.*)$`)
	pdfTeXWarningRe = regexp.MustCompile(`^pdfTeX warning(?: \([^)]*\))?: .+$`)
	boxRe           = regexp.MustCompile(`^(Over|Under)full \\[hv]box \(`)
)

// DefaultRules returns the rules for LaTeX engine output (pdfTeX, XeTeX, LuaTeX).
func DefaultRules() []Rule {
	return []Rule{
		ErrorRule(),
		FileLineErrorRule(),
		RunawayArgumentRule(),
		WarningRule(),
		PDFTeXWarningRule(),
		BoxRule(),
	}
}

type errorRule struct{}

// ErrorRule matches "! message" error banners and the l.<N> marker that follows them.
func ErrorRule() Rule { return errorRule{} }

func (errorRule) Name() string { return "error" }

func (errorRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := s.Line()
	if !strings.HasPrefix(line, "!") {
		return Diagnostic{}, false
	}
	msg := strings.TrimSpace(line[1:])
	if msg == "" {
		return Diagnostic{}, false
	}

	entry := Entry{File: s.File(), Message: msg}
	n, lineNo := errorContext(s)
	entry.Line = lineNo
	entry.Raw = s.Span(n)
	s.Skip(n)
	return Diagnostic{Kind: KindError, Entry: entry}, true
}

// errorContext looks ahead for the l.<N> marker TeX prints after an error
// and returns how many lines belong to the error along with N. The search
// stops at the start of another error. When no marker is found nothing is
// consumed and the line is unknown.
func errorContext(s *Scanner) (int, int) {
	for i := 1; i <= errorLookahead; i++ {
		next, ok := s.Peek(i)
		if !ok || startsError(next) {
			break
		}
		m := lineMarkerRe.FindStringSubmatch(next)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, UnknownLine
		}
		// TeX splits the offending source line at the error position and
		// prints the remainder indented on the following line.
		if cont, ok := s.Peek(i + 1); ok && strings.HasPrefix(cont, " ") {
			i++
		}
		return i, n
	}
	return 0, UnknownLine
}

type fileLineErrorRule struct{}

// FileLineErrorRule matches errors printed in -file-line-error mode, "file.tex:12: message".
func FileLineErrorRule() Rule { return fileLineErrorRule{} }

func (fileLineErrorRule) Name() string { return "file-line-error" }

func (fileLineErrorRule) Apply(s *Scanner) (Diagnostic, bool) {
	m := fileLineErrorRe.FindStringSubmatch(s.Line())
	if m == nil {
		return Diagnostic{}, false
	}
	lineNo, err := strconv.Atoi(m[2])
	if err != nil {
		return Diagnostic{}, false
	}

	n, _ := errorContext(s)
	entry := Entry{
		File:    m[1],
		Line:    lineNo,
		Message: strings.TrimSpace(m[3]),
		Raw:     s.Span(n),
	}
	s.Skip(n)
	return Diagnostic{Kind: KindError, Entry: entry}, true
}

type runawayRule struct{}

// RunawayArgumentRule matches "Runaway argument?" reports together with the argument text.
func RunawayArgumentRule() Rule { return runawayRule{} }

func (runawayRule) Name() string { return "runaway-argument" }

func (runawayRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := s.Line()
	if !strings.HasPrefix(line, "Runaway argument?") {
		return Diagnostic{}, false
	}

	msg := strings.TrimSpace(line)
	n := 0
	if next, ok := s.Peek(1); ok && next != "" && !strings.HasPrefix(next, "!") {
		msg += " " + strings.TrimSpace(next)
		n = 1
	}
	entry := Entry{File: s.File(), Line: UnknownLine, Message: msg, Raw: s.Span(n)}
	s.Skip(n)
	return Diagnostic{Kind: KindError, Entry: entry}, true
}

type warningRule struct{}

// WarningRule matches LaTeX, package, class and module warning banners
// including their "(name)" continuation lines.
func WarningRule() Rule { return warningRule{} }

func (warningRule) Name() string { return "warning" }

func (warningRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := s.Line()
	m := warningRe.FindStringSubmatch(line)
	if m == nil {
		return Diagnostic{}, false
	}
	origin, name, text := m[1], m[2], m[3]

	// Plain "LaTeX Warning:" reports the text only; everything else keeps
	// the banner so the package name survives.
	var msg strings.Builder
	if origin == "LaTeX" && name == "" {
		msg.WriteString(strings.TrimSpace(text))
	} else {
		msg.WriteString(strings.TrimSpace(line))
	}

	n := 0
	if name != "" {
		prefix := "(" + name + ")"
		for {
			next, ok := s.Peek(n + 1)
			if !ok || !strings.HasPrefix(next, prefix) {
				break
			}
			if rest := strings.TrimSpace(next[len(prefix):]); rest != "" {
				msg.WriteByte(' ')
				msg.WriteString(rest)
			}
			n++
		}
	}

	entry := Entry{
		File:    s.File(),
		Line:    lineNumber(msg.String()),
		Message: msg.String(),
		Raw:     s.Span(n),
	}
	s.Skip(n)
	return Diagnostic{Kind: KindWarning, Entry: entry}, true
}

type pdfTeXWarningRule struct{}

// PDFTeXWarningRule matches "pdfTeX warning (ext4): ..." lines.
func PDFTeXWarningRule() Rule { return pdfTeXWarningRule{} }

func (pdfTeXWarningRule) Name() string { return "pdftex-warning" }

func (pdfTeXWarningRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := s.Line()
	if !pdfTeXWarningRe.MatchString(line) {
		return Diagnostic{}, false
	}
	msg := strings.TrimSpace(line)
	return Diagnostic{
		Kind:  KindWarning,
		Entry: Entry{File: s.File(), Line: UnknownLine, Message: msg, Raw: line},
	}, true
}

type boxRule struct{}

// BoxRule matches overfull and underfull \hbox/\vbox reports.
func BoxRule() Rule { return boxRule{} }

func (boxRule) Name() string { return "box" }

func (boxRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := s.Line()
	if !boxRe.MatchString(line) {
		return Diagnostic{}, false
	}
	msg := strings.TrimSpace(line)

	// The box contents follow up to the next blank line.
	n := 0
	for n < boxContextLines {
		next, ok := s.Peek(n + 1)
		if !ok || strings.TrimSpace(next) == "" || startsDiagnostic(next) {
			break
		}
		n++
	}

	entry := Entry{File: s.File(), Line: lineNumber(msg), Message: msg, Raw: s.Span(n)}
	s.Skip(n)
	return Diagnostic{Kind: KindTypesetting, Entry: entry}, true
}

func startsError(line string) bool {
	return strings.HasPrefix(line, "!") ||
		strings.HasPrefix(line, "Runaway argument?") ||
		fileLineErrorRe.MatchString(line)
}

func startsDiagnostic(line string) bool {
	return strings.HasPrefix(line, "!") ||
		strings.HasPrefix(line, "(") ||
		strings.HasPrefix(line, ")") ||
		boxRe.MatchString(line) ||
		warningRe.MatchString(line)
}

// lineNumber pulls the source line out of a message, preferring
// "on input line N" over a bare "line N" or "lines N--M".
func lineNumber(msg string) int {
	m := inputLineRe.FindStringSubmatch(msg)
	if m == nil {
		m = linesRe.FindStringSubmatch(msg)
	}
	if m == nil {
		return UnknownLine
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return UnknownLine
	}
	return n
}
