package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/texrun/pkg/runner"
	"github.com/ccollicutt/texrun/pkg/texlog"
)

// CommandWidth is the display width commands are cut to unless NoTrunc is set.
const CommandWidth = 50

const marker = ">>>"

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

type palette struct {
	ok, bad, warn, info, errMark lipgloss.Style
}

// newPalette binds styles to w so colours are only emitted to terminals.
func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		info:    r.NewStyle().Foreground(lipgloss.Color("4")),
		errMark: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	p := newPalette(w)
	var b strings.Builder

	for _, pass := range report.Passes {
		if pass.Step == StepParse {
			continue
		}
		f.formatPass(&b, p, pass)
	}

	if report.Final != nil {
		f.formatEntries(&b, p, report)
	}

	if report.Failed && report.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", p.errMark.Render(marker), report.Error)
	}

	if report.Final != nil {
		fmt.Fprintln(&b, summaryLine(report.Summary, p))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) formatPass(b *strings.Builder, p palette, pass Pass) {
	mark := p.ok.Render("✔")
	if pass.Failed {
		mark = p.bad.Render("✖")
		if pass.Continued {
			mark = p.warn.Render("✖")
		}
	}

	command := pass.Command
	if !f.opts.NoTrunc {
		command = Truncate(command, CommandWidth)
	}

	line := fmt.Sprintf("%s %-7s %s", mark, pass.Step, command)
	switch {
	case pass.Continued:
		line += "  " + pass.Step + " failed but continuing"
	case pass.Counts != nil:
		line += "  " + summaryLine(*pass.Counts, p)
	case pass.Failed && pass.Error != "":
		line += "  " + pass.Error
	}

	b.WriteString(strings.TrimRight(line, " "))
	b.WriteByte('\n')
}

func (f *TextFormatter) formatEntries(b *strings.Builder, p palette, report *Report) {
	final := report.Final
	var lines []string

	if !f.opts.Quiet || f.opts.Verbose {
		for _, e := range final.Errors {
			lines = append(lines, p.errMark.Render(marker)+" "+FormatEntry(e))
		}
	}

	if f.opts.Verbose {
		for _, e := range final.Warnings {
			lines = append(lines, p.info.Render(marker)+" "+FormatEntry(e))
		}
		for _, e := range final.Typesetting {
			lines = append(lines, p.info.Render(marker)+" "+FormatEntry(e))
		}
		for _, pass := range report.Passes {
			if pass.Step != string(runner.StepBibTeX) || pass.Result == nil {
				continue
			}
			for _, e := range pass.Result.Errors {
				lines = append(lines, p.errMark.Render(marker)+" "+FormatEntry(e))
			}
			for _, e := range pass.Result.Warnings {
				lines = append(lines, p.info.Render(marker)+" "+FormatEntry(e))
			}
		}
	}

	if len(lines) == 0 {
		return
	}
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

// FormatEntry renders an entry as "file:line - message", leaving out
// whatever part of the location is unknown.
func FormatEntry(e texlog.Entry) string {
	loc := e.Location()
	if loc == "" {
		return e.Message
	}
	return loc + " - " + e.Message
}

// summaryLine renders the four counts. Zero is green, errors are red and
// other non-zero counts are yellow.
func summaryLine(c texlog.Counts, p palette) string {
	count := func(n int, bad lipgloss.Style) string {
		s := strconv.Itoa(n)
		if n == 0 {
			return "[" + p.ok.Render(s) + "]"
		}
		return "[" + bad.Render(s) + "]"
	}
	return fmt.Sprintf("%s errors, %s warnings, %s citation warnings, %s typesetting",
		count(c.Errors, p.bad),
		count(c.Warnings, p.warn),
		count(c.CitationWarnings, p.warn),
		count(c.Typesetting, p.warn))
}

// PlainSummary renders the counts without colour.
func PlainSummary(c texlog.Counts) string {
	return summaryLine(c, newPalette(io.Discard))
}

// Truncate cuts s to at most width runes, marking the cut with "...".
func Truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
