package texlog

import "strings"

// Options controls a parse.
type Options struct {
	// IgnoreDuplicates drops entries whose (file, line, message) already
	// appears in the same list.
	IgnoreDuplicates bool

	// MaxPrintLine is the engine's wrap column. Zero means
	// DefaultMaxPrintLine; a negative value disables unwrapping.
	MaxPrintLine int
}

// Parser applies an ordered list of rules to engine output. A Parser
// holds no state between calls and is safe for concurrent use.
type Parser struct {
	rules []Rule
	opts  Options
}

// Option configures a Parser.
type Option func(*Parser)

// WithRules replaces the rule set. Rules are tried in order and the first
// match wins.
func WithRules(rules ...Rule) Option {
	return func(p *Parser) {
		p.rules = rules
	}
}

// WithIgnoreDuplicates enables duplicate suppression.
func WithIgnoreDuplicates(v bool) Option {
	return func(p *Parser) {
		p.opts.IgnoreDuplicates = v
	}
}

// WithMaxPrintLine sets the wrap column used to rejoin long lines.
func WithMaxPrintLine(n int) Option {
	return func(p *Parser) {
		p.opts.MaxPrintLine = n
	}
}

// New creates a Parser using DefaultRules unless WithRules is given.
func New(opts ...Option) *Parser {
	p := &Parser{rules: DefaultRules()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse classifies LaTeX engine output with the default rules.
func Parse(raw string, opts Options) *Result {
	return New(
		WithIgnoreDuplicates(opts.IgnoreDuplicates),
		WithMaxPrintLine(opts.MaxPrintLine),
	).Parse(raw)
}

type entryKey struct {
	file    string
	line    int
	message string
}

// Parse classifies raw engine output. It never fails: lines no rule
// recognizes are dropped.
func (p *Parser) Parse(raw string) *Result {
	result := NewResult()
	s := newScanner(raw, p.opts.MaxPrintLine)

	var seen map[Kind]map[entryKey]bool
	if p.opts.IgnoreDuplicates {
		seen = map[Kind]map[entryKey]bool{
			KindError:       {},
			KindWarning:     {},
			KindTypesetting: {},
		}
	}

	for ; !s.done(); s.pos++ {
		d, ok := p.apply(s)
		if !ok {
			// Inclusion markers are only tracked on lines no rule consumed;
			// error context lines quote source text with arbitrary parentheses.
			s.files.scan(s.Line())
			continue
		}

		list := result.list(d.Kind)
		if list == nil {
			continue
		}

		e := d.Entry
		e.File = strings.TrimSpace(e.File)
		e.Message = strings.TrimSpace(e.Message)
		if e.Line < 0 {
			e.Line = UnknownLine
		}

		if seen != nil {
			key := entryKey{file: e.File, line: e.Line, message: e.Message}
			if seen[d.Kind][key] {
				continue
			}
			seen[d.Kind][key] = true
		}
		*list = append(*list, e)
	}

	return result
}

func (p *Parser) apply(s *Scanner) (Diagnostic, bool) {
	start := s.pos
	for _, rule := range p.rules {
		if d, ok := rule.Apply(s); ok {
			return d, true
		}
		s.pos = start
	}
	return Diagnostic{}, false
}
