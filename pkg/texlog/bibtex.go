package texlog

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bibWarningRe     = regexp.MustCompile(`^Warning--(.+)$`)
	bibWarningLineRe = regexp.MustCompile(`^--line (\d+) of file (.+)$`)
	bibLineErrorRe   = regexp.MustCompile(`^(.+)---line (\d+) of file (.+)$`)
	bibReadErrorRe   = regexp.MustCompile(`^(.+)---while reading file (.+)$`)
	bibOpenErrorRe   = regexp.MustCompile(`^I couldn't open (.+)$`)
)

// BibTeXRules returns the rules for BibTeX console output.
func BibTeXRules() []Rule {
	return []Rule{
		bibErrorRule{},
		bibWarningRule{},
	}
}

type bibErrorRule struct{}

func (bibErrorRule) Name() string { return "bibtex-error" }

func (bibErrorRule) Apply(s *Scanner) (Diagnostic, bool) {
	line := strings.TrimSpace(s.Line())

	if m := bibLineErrorRe.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			n = UnknownLine
		}
		return bibError(m[3], n, m[1], line), true
	}
	if m := bibReadErrorRe.FindStringSubmatch(line); m != nil {
		return bibError(m[2], UnknownLine, m[1], line), true
	}
	if bibOpenErrorRe.MatchString(line) {
		return bibError("", UnknownLine, line, line), true
	}
	return Diagnostic{}, false
}

func bibError(file string, line int, msg, raw string) Diagnostic {
	return Diagnostic{
		Kind: KindError,
		Entry: Entry{
			File:    strings.TrimSpace(file),
			Line:    line,
			Message: strings.TrimSpace(msg),
			Raw:     raw,
		},
	}
}

type bibWarningRule struct{}

func (bibWarningRule) Name() string { return "bibtex-warning" }

func (bibWarningRule) Apply(s *Scanner) (Diagnostic, bool) {
	m := bibWarningRe.FindStringSubmatch(strings.TrimSpace(s.Line()))
	if m == nil {
		return Diagnostic{}, false
	}

	entry := Entry{Line: UnknownLine, Message: strings.TrimSpace(m[1])}
	n := 0
	if next, ok := s.Peek(1); ok {
		if lm := bibWarningLineRe.FindStringSubmatch(strings.TrimSpace(next)); lm != nil {
			if v, err := strconv.Atoi(lm[1]); err == nil {
				entry.Line = v
			}
			entry.File = strings.TrimSpace(lm[2])
			n = 1
		}
	}
	entry.Raw = s.Span(n)
	s.Skip(n)
	return Diagnostic{Kind: KindWarning, Entry: entry}, true
}
