package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter writes reports as JSON. Per-pass results are only included
// when Verbose is set since the final engine result is always present.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format encodes the report, or just its summary when Quiet is set.
// Compact output is one line per report.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}

	var v any = f.trim(report)
	if f.opts.Quiet && !f.opts.Verbose {
		v = report.Summary
	}
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding %s report: %w", report.Target, err)
	}
	return nil
}

func (f *JSONFormatter) trim(report *Report) *Report {
	if f.opts.Verbose {
		return report
	}
	trimmed := *report
	trimmed.Passes = make([]Pass, len(report.Passes))
	for i, p := range report.Passes {
		p.Result = nil
		trimmed.Passes[i] = p
	}
	return &trimmed
}
