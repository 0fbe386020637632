package texlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreRaw = cmpopts.IgnoreFields(Entry{}, "Raw")

func TestParse_EmptyInput(t *testing.T) {
	got := Parse("", Options{})
	if got.Errors == nil || got.Warnings == nil || got.Typesetting == nil {
		t.Fatalf("Parse(\"\") returned nil lists: %+v", got)
	}
	if diff := cmp.Diff(NewResult(), got); diff != "" {
		t.Errorf("Parse(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_UnrecognizedContentIsInert(t *testing.T) {
	input := `Lorem ipsum dolor sit amet, consectetur adipiscing elit.
Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.

Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris.
`
	got := Parse(input, Options{IgnoreDuplicates: true})
	if diff := cmp.Diff(NewResult(), got); diff != "" {
		t.Errorf("Parse(lorem) mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_FileAttributionThroughNesting(t *testing.T) {
	input := `(doc.tex
LaTeX2e <2021-11-15> patch level 1
(chapter1.tex
! Undefined control sequence.
l.42 \foo

)
LaTeX Warning: Reference ` + "`sec:intro'" + ` on page 1 undefined on input line 7.
)
`
	got := Parse(input, Options{})

	wantErrors := []Entry{{File: "chapter1.tex", Line: 42, Message: "Undefined control sequence."}}
	if diff := cmp.Diff(wantErrors, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}

	wantWarnings := []Entry{{File: "doc.tex", Line: 7, Message: "Reference `sec:intro' on page 1 undefined on input line 7."}}
	if diff := cmp.Diff(wantWarnings, got.Warnings, ignoreRaw); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ErrorRawIncludesContext(t *testing.T) {
	input := "(doc.tex\n! Undefined control sequence.\nl.42 \\foo\n         bar\n)\n"
	got := Parse(input, Options{})
	if len(got.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(got.Errors))
	}
	want := "! Undefined control sequence.\nl.42 \\foo\n         bar"
	if got.Errors[0].Raw != want {
		t.Errorf("Raw = %q, want %q", got.Errors[0].Raw, want)
	}
}

func TestParse_ErrorWithoutLineMarker(t *testing.T) {
	input := "(doc.tex\n! Emergency stop.\n<*> doc.tex\n"
	got := Parse(input, Options{})
	if len(got.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(got.Errors))
	}
	e := got.Errors[0]
	if e.Line != UnknownLine {
		t.Errorf("Line = %d, want UnknownLine", e.Line)
	}
	if e.File != "doc.tex" {
		t.Errorf("File = %q, want %q", e.File, "doc.tex")
	}
	if e.Message != "Emergency stop." {
		t.Errorf("Message = %q, want %q", e.Message, "Emergency stop.")
	}
}

func TestParse_DiagnosticBeforeAnyFile(t *testing.T) {
	got := Parse("! LaTeX Error: File `missing.sty' not found.\n", Options{})
	if len(got.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(got.Errors))
	}
	if got.Errors[0].File != "" {
		t.Errorf("File = %q, want empty", got.Errors[0].File)
	}
	if got.Errors[0].Message != "LaTeX Error: File `missing.sty' not found." {
		t.Errorf("Message = %q", got.Errors[0].Message)
	}
}

func TestParse_UnbalancedParensYieldUnknownFile(t *testing.T) {
	input := ")\n)\n! Undefined control sequence.\nl.3 \\foo\n"
	got := Parse(input, Options{})
	if len(got.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(got.Errors))
	}
	if got.Errors[0].File != "" {
		t.Errorf("File = %q, want empty", got.Errors[0].File)
	}
	if got.Errors[0].Line != 3 {
		t.Errorf("Line = %d, want 3", got.Errors[0].Line)
	}
}

func TestParse_OrderPreserved(t *testing.T) {
	input := `! First error.
some unrelated output
! Second error.

more noise here
! Third error.
l.9 x
`
	got := Parse(input, Options{})

	var messages []string
	for _, e := range got.Errors {
		messages = append(messages, e.Message)
	}
	want := []string{"First error.", "Second error.", "Third error."}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Errorf("error order mismatch (-want +got):\n%s", diff)
	}
	if got.Errors[2].Line != 9 {
		t.Errorf("third error Line = %d, want 9", got.Errors[2].Line)
	}
}

func TestParse_DuplicateSuppression(t *testing.T) {
	warning := "LaTeX Warning: Reference `fig:1' on page 2 undefined on input line 30.\n"
	box := "Overfull \\hbox (3.0pt too wide) in paragraph at lines 5--6\n\n"
	input := "(doc.tex\n" + warning + warning + box + box + warning + ")\n"

	deduped := Parse(input, Options{IgnoreDuplicates: true})
	if len(deduped.Warnings) != 1 {
		t.Errorf("deduplicated Warnings = %d, want 1", len(deduped.Warnings))
	}
	if len(deduped.Typesetting) != 1 {
		t.Errorf("deduplicated Typesetting = %d, want 1", len(deduped.Typesetting))
	}

	all := Parse(input, Options{IgnoreDuplicates: false})
	if len(all.Warnings) != 3 {
		t.Errorf("Warnings = %d, want 3", len(all.Warnings))
	}
	if len(all.Typesetting) != 2 {
		t.Errorf("Typesetting = %d, want 2", len(all.Typesetting))
	}

	again := Parse(input, Options{IgnoreDuplicates: true})
	if diff := cmp.Diff(deduped, again); diff != "" {
		t.Errorf("repeated parse differs (-first +second):\n%s", diff)
	}
}

func TestParse_DuplicatesDistinguishedByFile(t *testing.T) {
	warning := "LaTeX Warning: Reference `fig:1' on page 2 undefined on input line 30.\n"
	input := "(a.tex\n" + warning + ")\n(b.tex\n" + warning + ")\n"

	got := Parse(input, Options{IgnoreDuplicates: true})
	if len(got.Warnings) != 2 {
		t.Fatalf("Warnings = %d, want 2", len(got.Warnings))
	}
	if got.Warnings[0].File != "a.tex" || got.Warnings[1].File != "b.tex" {
		t.Errorf("Files = %q, %q", got.Warnings[0].File, got.Warnings[1].File)
	}
}

func TestParse_CitationWarningsStayInWarnings(t *testing.T) {
	input := `Package natbib Warning: Citation ` + "`smith2020'" + ` on page 1 undefined on input line 5.
LaTeX Warning: Citation ` + "`jones'" + ` on page 2 undefined on input line 9.
LaTeX Warning: Reference ` + "`fig:a'" + ` on page 2 undefined on input line 10.
`
	got := Parse(input, Options{})
	if len(got.Warnings) != 3 {
		t.Fatalf("Warnings = %d, want 3", len(got.Warnings))
	}
	if len(got.Errors) != 0 || len(got.Typesetting) != 0 {
		t.Errorf("unexpected entries: %+v", got)
	}
	if n := got.CitationWarnings(); n != 2 {
		t.Errorf("CitationWarnings() = %d, want 2", n)
	}
	if got.Warnings[0].Line != 5 {
		t.Errorf("natbib warning Line = %d, want 5", got.Warnings[0].Line)
	}
}

func TestParse_ClassificationIsExclusive(t *testing.T) {
	got := parseSample(t)

	type key struct {
		file, message string
		line          int
	}
	owner := make(map[key]string)
	check := func(list string, entries []Entry) {
		for _, e := range entries {
			k := key{e.File, e.Message, e.Line}
			if prev, ok := owner[k]; ok && prev != list {
				t.Errorf("entry %+v in both %s and %s", e, prev, list)
			}
			owner[k] = list
		}
	}
	check("errors", got.Errors)
	check("warnings", got.Warnings)
	check("typesetting", got.Typesetting)
}

func TestParse_SampleLog(t *testing.T) {
	got := parseSample(t)

	wantCounts := Counts{Errors: 2, Warnings: 3, CitationWarnings: 2, Typesetting: 1}
	if diff := cmp.Diff(wantCounts, got.Counts()); diff != "" {
		t.Errorf("Counts mismatch (-want +got):\n%s", diff)
	}

	wantErrors := []Entry{
		{File: "./methods.tex", Line: 31, Message: "Undefined control sequence."},
		{File: "./methods.tex", Line: 31, Message: "Emergency stop."},
	}
	if diff := cmp.Diff(wantErrors, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}

	wantWarnings := []Entry{
		{File: "./intro.tex", Line: 14, Message: "Citation `knuth84' on page 1 undefined on input line 14."},
		{File: "./thesis.tex", Line: 8, Message: "Package natbib Warning: Citation `lamport94' on page 3 undefined on input line 8."},
		{File: "./thesis.tex", Line: UnknownLine, Message: "There were undefined references."},
	}
	if diff := cmp.Diff(wantWarnings, got.Warnings, ignoreRaw); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}

	wantTypesetting := []Entry{
		{File: "./intro.tex", Line: 20, Message: "Overfull \\hbox (12.3pt too wide) in paragraph at lines 20--24"},
	}
	if diff := cmp.Diff(wantTypesetting, got.Typesetting, ignoreRaw); diff != "" {
		t.Errorf("Typesetting mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_StripsANSIAndControlBytes(t *testing.T) {
	input := "\x1b[31m! Undefined control sequence.\x1b[0m\x00\nl.3 \\foo\n"
	got := Parse(input, Options{})
	want := []Entry{{Line: 3, Message: "Undefined control sequence."}}
	if diff := cmp.Diff(want, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ToleratesCRLF(t *testing.T) {
	input := "(doc.tex\r\n! Missing $ inserted.\r\nl.12 x^2\r\n)\r\n"
	got := Parse(input, Options{})
	want := []Entry{{File: "doc.tex", Line: 12, Message: "Missing $ inserted."}}
	if diff := cmp.Diff(want, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RejoinsWrappedLines(t *testing.T) {
	prefix := "LaTeX Warning: Citation `"
	first := prefix + strings.Repeat("x", DefaultMaxPrintLine-len(prefix))
	if len(first) != DefaultMaxPrintLine {
		t.Fatalf("test setup: first line is %d bytes", len(first))
	}
	input := first + "\n' on page 1 undefined on input line 12.\n"

	got := Parse(input, Options{})
	if len(got.Warnings) != 1 {
		t.Fatalf("Warnings = %d, want 1", len(got.Warnings))
	}
	if got.Warnings[0].Line != 12 {
		t.Errorf("Line = %d, want 12", got.Warnings[0].Line)
	}
	if !strings.HasSuffix(got.Warnings[0].Message, "' on page 1 undefined on input line 12.") {
		t.Errorf("Message = %q, want rejoined text", got.Warnings[0].Message)
	}

	unwrapped := Parse(input, Options{MaxPrintLine: -1})
	if len(unwrapped.Warnings) != 1 {
		t.Fatalf("Warnings without unwrapping = %d, want 1", len(unwrapped.Warnings))
	}
	if unwrapped.Warnings[0].Line != UnknownLine {
		t.Errorf("Line without unwrapping = %d, want UnknownLine", unwrapped.Warnings[0].Line)
	}
}

func TestParser_CustomRules(t *testing.T) {
	p := New(WithRules(BoxRule()))
	got := p.Parse("! Undefined control sequence.\nUnderfull \\hbox (badness 10000) detected at line 7\n")
	if len(got.Errors) != 0 {
		t.Errorf("Errors = %d, want 0 with box-only rules", len(got.Errors))
	}
	if len(got.Typesetting) != 1 || got.Typesetting[0].Line != 7 {
		t.Errorf("Typesetting = %+v, want one entry at line 7", got.Typesetting)
	}
}

func TestParser_ConcurrentUse(t *testing.T) {
	data := readSample(t)
	p := New(WithIgnoreDuplicates(true), WithMaxPrintLine(-1))
	want := p.Parse(data)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if diff := cmp.Diff(want, p.Parse(data)); diff != "" {
				t.Errorf("concurrent parse differs:\n%s", diff)
			}
		}()
	}
	wg.Wait()
}

func TestEntry_Location(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{File: "a.tex", Line: 3}, "a.tex:3"},
		{Entry{File: "a.tex"}, "a.tex"},
		{Entry{Line: 3}, "line 3"},
		{Entry{}, ""},
	}
	for _, tt := range tests {
		if got := tt.entry.Location(); got != tt.want {
			t.Errorf("Location(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func readSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "thesis.log"))
	if err != nil {
		t.Fatalf("reading sample log: %v", err)
	}
	return string(data)
}

func parseSample(t *testing.T) *Result {
	t.Helper()
	return Parse(readSample(t), Options{IgnoreDuplicates: true, MaxPrintLine: -1})
}

func TestParse_ConsecutiveFileLineErrors(t *testing.T) {
	input := "./a.tex:3: Emergency stop.\n<*> a.tex\n./b.tex:9: Undefined control sequence.\nl.9 \\foo\n"
	got := Parse(input, Options{})
	want := []Entry{
		{File: "./a.tex", Line: 3, Message: "Emergency stop."},
		{File: "./b.tex", Line: 9, Message: "Undefined control sequence."},
	}
	if diff := cmp.Diff(want, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_KeepsEightBitBytes(t *testing.T) {
	input := "(caf\xe9.tex\n! Undefined control sequence \xe9.\nl.4 x\n)\n"
	got := Parse(input, Options{})
	want := []Entry{{File: "caf\xe9.tex", Line: 4, Message: "Undefined control sequence \xe9."}}
	if diff := cmp.Diff(want, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStripControl(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\tb", "a\tb"},
		{"a\x00b\x07c\x7fd", "abcd"},
		{"caf\xe9\x01", "caf\xe9"},
		{"\x9b\xff", "\x9b\xff"},
	}
	for _, tt := range tests {
		if got := stripControl(stripEscapes(tt.in)); got != tt.want {
			t.Errorf("stripControl(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
