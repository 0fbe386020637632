// Package texlog classifies the console output of a TeX engine run into
// errors, warnings and typesetting issues.
package texlog

import (
	"strconv"
	"strings"
)

// UnknownLine is the Line of an entry whose source line the engine did not report.
const UnknownLine = 0

// Kind identifies the result list a diagnostic belongs to.
type Kind string

const (
	KindError       Kind = "error"
	KindWarning     Kind = "warning"
	KindTypesetting Kind = "typesetting"
)

// Entry is a single diagnostic extracted from engine output.
type Entry struct {
	// File is the source path the engine reported, empty when unknown.
	File string `json:"file"`

	// Line is the 1-based source line, or UnknownLine.
	Line int `json:"line"`

	// Message is the diagnostic text as printed by the engine.
	Message string `json:"message"`

	// Raw holds the log lines the entry was built from.
	Raw string `json:"raw,omitempty"`
}

// Location renders the entry's position as file:line, omitting whatever is unknown.
func (e Entry) Location() string {
	switch {
	case e.Line == UnknownLine:
		return e.File
	case e.File == "":
		return "line " + strconv.Itoa(e.Line)
	default:
		return e.File + ":" + strconv.Itoa(e.Line)
	}
}

// IsCitation reports whether the entry is a citation warning.
func (e Entry) IsCitation() bool {
	return strings.Contains(e.Message, "Citation")
}

// Diagnostic is what a Rule produces: an entry and the list it goes to.
type Diagnostic struct {
	Kind  Kind
	Entry Entry
}

// Result is the classified output of one parse.
type Result struct {
	Errors      []Entry `json:"errors"`
	Warnings    []Entry `json:"warnings"`
	Typesetting []Entry `json:"typesetting"`
}

// NewResult returns a Result with empty, non-nil lists.
func NewResult() *Result {
	return &Result{
		Errors:      []Entry{},
		Warnings:    []Entry{},
		Typesetting: []Entry{},
	}
}

// Counts summarizes a Result.
type Counts struct {
	Errors           int `json:"errors"`
	Warnings         int `json:"warnings"`
	CitationWarnings int `json:"citation_warnings"`
	Typesetting      int `json:"typesetting"`
}

// Counts returns the size of each list plus the number of citation warnings.
func (r *Result) Counts() Counts {
	return Counts{
		Errors:           len(r.Errors),
		Warnings:         len(r.Warnings),
		CitationWarnings: r.CitationWarnings(),
		Typesetting:      len(r.Typesetting),
	}
}

// CitationWarnings counts the warnings whose message mentions a citation.
func (r *Result) CitationWarnings() int {
	n := 0
	for _, w := range r.Warnings {
		if w.IsCitation() {
			n++
		}
	}
	return n
}

// HasErrors returns true if any error was found.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *Result) list(kind Kind) *[]Entry {
	switch kind {
	case KindError:
		return &r.Errors
	case KindWarning:
		return &r.Warnings
	case KindTypesetting:
		return &r.Typesetting
	default:
		return nil
	}
}
