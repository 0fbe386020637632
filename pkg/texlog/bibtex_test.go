package texlog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBibTeXRules(t *testing.T) {
	input := `This is BibTeX, Version 0.99d (TeX Live 2022)
The top-level auxiliary file: thesis.aux
The style file: plainnat.bst
Database file #1: refs.bib
Warning--I didn't find a database entry for "knuth84"
Warning--empty journal in lamport94
--line 12 of file refs.bib
I was expecting a ` + "`,'" + ` or a ` + "`}'" + `---line 40 of file refs.bib
I couldn't open style file missing.bst
I found no \citation commands---while reading file thesis.aux
(There were 3 error messages)
`
	got := New(WithRules(BibTeXRules()...), WithIgnoreDuplicates(true)).Parse(input)

	wantWarnings := []Entry{
		{Message: `I didn't find a database entry for "knuth84"`},
		{File: "refs.bib", Line: 12, Message: "empty journal in lamport94"},
	}
	if diff := cmp.Diff(wantWarnings, got.Warnings, ignoreRaw); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}

	wantErrors := []Entry{
		{File: "refs.bib", Line: 40, Message: "I was expecting a `,' or a `}'"},
		{Message: "I couldn't open style file missing.bst"},
		{File: "thesis.aux", Message: `I found no \citation commands`},
	}
	if diff := cmp.Diff(wantErrors, got.Errors, ignoreRaw); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestBibTeXRules_IgnoreLaTeXOutput(t *testing.T) {
	got := New(WithRules(BibTeXRules()...)).Parse("! Undefined control sequence.\nl.3 \\foo\n")
	if diff := cmp.Diff(NewResult(), got); diff != "" {
		t.Errorf("BibTeX rules classified LaTeX output (-want +got):\n%s", diff)
	}
}
