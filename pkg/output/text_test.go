package output

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/texrun/pkg/runner"
	"github.com/ccollicutt/texrun/pkg/texlog"
)

func engineResult() *texlog.Result {
	r := texlog.NewResult()
	r.Errors = append(r.Errors, texlog.Entry{File: "./methods.tex", Line: 31, Message: "Undefined control sequence."})
	r.Warnings = append(r.Warnings,
		texlog.Entry{File: "./intro.tex", Line: 4, Message: "Citation `knuth84' on page 1 undefined on input line 4."},
		texlog.Entry{File: "./intro.tex", Message: "Package hyperref Warning: Token not allowed in a PDF string"},
	)
	r.Typesetting = append(r.Typesetting, texlog.Entry{File: "./intro.tex", Line: 20, Message: `Overfull \hbox (3.2pt too wide) in paragraph at lines 20--22`})
	return r
}

func createTestReport() *Report {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	build := &runner.BuildResult{
		Target:    "thesis.tex",
		Job:       "thesis",
		PDF:       "thesis.pdf",
		StartedAt: start,
		Duration:  3 * time.Second,
		Passes: []runner.PassResult{
			{Step: runner.StepClean, Command: "remove thesis auxiliary files"},
			{Step: runner.StepEngine, Command: "pdflatex -shell-escape -halt-on-error thesis.tex", Result: texlog.NewResult()},
			{
				Step:      runner.StepBibTeX,
				Command:   "bibtex thesis",
				ExitCode:  2,
				Err:       errors.New("exit status 2"),
				Continued: true,
				Result: &texlog.Result{
					Errors:      []texlog.Entry{{Message: "I couldn't open database file refs.bib"}},
					Warnings:    []texlog.Entry{},
					Typesetting: []texlog.Entry{},
				},
			},
			{Step: runner.StepEngine, Command: "pdflatex -shell-escape -halt-on-error thesis.tex", Result: engineResult()},
			{Step: runner.StepClean, Command: "remove thesis auxiliary files"},
		},
	}
	return NewBuildReport(build, ".texrun.yaml")
}

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"text", "json", ""} {
		if _, err := New(name, FormatOptions{}); err != nil {
			t.Errorf("New(%q) error = %v", name, err)
		}
	}

	_, err := New("xml", FormatOptions{})
	var unknown *UnknownFormatError
	if !errors.As(err, &unknown) || unknown.Name != "xml" {
		t.Errorf("New(xml) error = %v, want UnknownFormatError", err)
	}
}

func TestNewBuildReport(t *testing.T) {
	report := createTestReport()

	if len(report.Passes) != 5 {
		t.Fatalf("Passes = %d, want 5", len(report.Passes))
	}
	want := texlog.Counts{Errors: 1, Warnings: 2, CitationWarnings: 1, Typesetting: 1}
	if report.Summary != want {
		t.Errorf("Summary = %+v, want %+v", report.Summary, want)
	}
	if report.Final == nil || len(report.Final.Errors) != 1 {
		t.Errorf("Final should be the last engine pass")
	}
	bib := report.Passes[2]
	if !bib.Failed || !bib.Continued || bib.Error != "exit status 2" {
		t.Errorf("bibtex pass = %+v", bib)
	}
	if report.Passes[0].Counts != nil {
		t.Error("clean pass should have no counts")
	}
	if !report.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
	if report.Metadata.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", report.Metadata.Duration)
	}
}

func TestNewBuildReport_Failed(t *testing.T) {
	err := &runner.StepError{Step: runner.StepEngine, Command: "pdflatex x.tex", ExitCode: 1, Err: errors.New("exit status 1")}
	build := &runner.BuildResult{
		Target: "x.tex",
		Err:    err,
		Passes: []runner.PassResult{{Step: runner.StepEngine, Command: "pdflatex x.tex", ExitCode: 1, Err: err, Result: texlog.NewResult()}},
	}
	report := NewBuildReport(build, "")

	if !report.Failed {
		t.Error("Failed = false, want true")
	}
	if !report.HasErrors() {
		t.Error("a failed build with no parsed errors still has errors")
	}
	if !strings.Contains(report.Error, "engine step failed") {
		t.Errorf("Error = %q", report.Error)
	}
}

func TestTextFormatter_Format_Default(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "./methods.tex:31 - Undefined control sequence.") {
		t.Errorf("Output missing error entry:\n%s", output)
	}
	if strings.Contains(output, "knuth84") {
		t.Error("Default output should not list warnings")
	}
	if !strings.Contains(output, "bibtex failed but continuing") {
		t.Error("Output missing bibtex continuation note")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	last := lines[len(lines)-1]
	if last != "[1] errors, [2] warnings, [1] citation warnings, [1] typesetting" {
		t.Errorf("summary line = %q", last)
	}
}

func TestTextFormatter_Format_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if strings.Contains(buf.String(), "methods.tex") {
		t.Error("Quiet output should not list errors")
	}
	if !strings.Contains(buf.String(), "[1] errors") {
		t.Error("Quiet output missing summary")
	}
}

func TestTextFormatter_Format_Verbose(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"./intro.tex:4 - Citation `knuth84' on page 1 undefined on input line 4.",
		"./intro.tex - Package hyperref Warning",
		`./intro.tex:20 - Overfull \hbox`,
		">>> I couldn't open database file refs.bib",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Verbose output missing %q:\n%s", want, output)
		}
	}
}

func TestTextFormatter_Format_Truncation(t *testing.T) {
	build := &runner.BuildResult{
		Target: "thesis.tex",
		Passes: []runner.PassResult{{
			Step:    runner.StepEngine,
			Command: "pdflatex -shell-escape -halt-on-error -interaction=nonstopmode thesis.tex",
			Result:  texlog.NewResult(),
		}},
	}
	report := NewBuildReport(build, "")

	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Contains(buf.String(), "thesis.tex") {
		t.Error("command should be truncated")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Error("truncated command should end with ...")
	}

	buf.Reset()
	if err := NewTextFormatter(FormatOptions{NoTrunc: true}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), "-interaction=nonstopmode thesis.tex") {
		t.Error("NoTrunc output should show the full command")
	}
}

func TestTextFormatter_Format_BuildError(t *testing.T) {
	build := &runner.BuildResult{Target: "x.tex", Err: errors.New("engine step failed (exit 1): pdflatex x.tex")}

	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), NewBuildReport(build, ""), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), ">>> engine step failed") {
		t.Errorf("Output missing build error:\n%s", buf.String())
	}
}

func TestTextFormatter_Format_ParseReport(t *testing.T) {
	report := NewParseReport("thesis.log", engineResult(), time.Millisecond)

	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "parse") {
		t.Error("parse reports have no pass lines")
	}
	if !strings.Contains(output, "./methods.tex:31 - Undefined control sequence.") {
		t.Error("Output missing error entry")
	}
}

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		entry texlog.Entry
		want  string
	}{
		{texlog.Entry{File: "a.tex", Line: 3, Message: "m"}, "a.tex:3 - m"},
		{texlog.Entry{File: "a.tex", Message: "m"}, "a.tex - m"},
		{texlog.Entry{Line: 3, Message: "m"}, "line 3 - m"},
		{texlog.Entry{Message: "m"}, "m"},
	}
	for _, tt := range tests {
		if got := FormatEntry(tt.entry); got != tt.want {
			t.Errorf("FormatEntry(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func TestPlainSummary(t *testing.T) {
	got := PlainSummary(texlog.Counts{Errors: 2, Warnings: 0, CitationWarnings: 0, Typesetting: 5})
	want := "[2] errors, [0] warnings, [0] citation warnings, [5] typesetting"
	if got != want {
		t.Errorf("PlainSummary() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 50, "short"},
		{strings.Repeat("a", 50), 50, strings.Repeat("a", 50)},
		{strings.Repeat("a", 51), 50, strings.Repeat("a", 47) + "..."},
		{"ünïcödé", 5, "ün..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
