package output

import (
	"context"
	"io"
)

// Formatter renders build reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose lists warnings and typesetting issues as well as errors.
	Verbose bool

	// Quiet suppresses the error listing, leaving the summaries.
	Quiet bool

	// NoTrunc shows commands in full instead of cutting them at CommandWidth.
	NoTrunc bool

	// Compact writes one JSON document per line, for streams of reports.
	Compact bool
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, &UnknownFormatError{Name: name}
	}
}

// UnknownFormatError is returned by New for an unregistered format.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return "unknown output format \"" + e.Name + "\" (use text or json)"
}
