// Package output renders build and parse reports for terminals and machines.
package output

import (
	"time"

	"github.com/ccollicutt/texrun/pkg/runner"
	"github.com/ccollicutt/texrun/pkg/texlog"
)

// StepParse labels the single pass of a report built from a saved log.
const StepParse = "parse"

// Report is the complete output of a build or parse.
type Report struct {
	// Target is the compiled document or the parsed log.
	Target string `json:"target"`

	// Passes lists every executed step in order.
	Passes []Pass `json:"passes"`

	// Summary counts the diagnostics of Final.
	Summary texlog.Counts `json:"summary"`

	// Final is the classified output of the last engine pass, which
	// reflects the document after all reruns.
	Final *texlog.Result `json:"final,omitempty"`

	// Failed is set when a step aborted the build.
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Pass is one executed step.
type Pass struct {
	Step      string         `json:"step"`
	Command   string         `json:"command,omitempty"`
	ExitCode  int            `json:"exit_code"`
	Duration  time.Duration  `json:"duration"`
	Failed    bool           `json:"failed"`
	Continued bool           `json:"continued,omitempty"`
	Error     string         `json:"error,omitempty"`
	Counts    *texlog.Counts `json:"counts,omitempty"`
	Result    *texlog.Result `json:"result,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
}

// NewBuildReport creates a Report from a finished build.
func NewBuildReport(b *runner.BuildResult, configFile string) *Report {
	report := &Report{
		Target: b.Target,
		Passes: make([]Pass, 0, len(b.Passes)),
		Failed: b.Failed(),
		Metadata: Metadata{
			ConfigFile:  configFile,
			GeneratedAt: b.StartedAt.Add(b.Duration),
			Duration:    b.Duration,
		},
	}
	if b.Err != nil {
		report.Error = b.Err.Error()
	}

	for _, p := range b.Passes {
		pass := Pass{
			Step:      string(p.Step),
			Command:   p.Command,
			ExitCode:  p.ExitCode,
			Duration:  p.Duration,
			Failed:    p.Failed(),
			Continued: p.Continued,
			Result:    p.Result,
		}
		if p.Err != nil {
			pass.Error = p.Err.Error()
		}
		if p.Result != nil {
			counts := p.Result.Counts()
			pass.Counts = &counts
		}
		report.Passes = append(report.Passes, pass)
	}

	if last, ok := b.LastEngine(); ok && last.Result != nil {
		report.Final = last.Result
		report.Summary = last.Result.Counts()
	}

	return report
}

// NewParseReport creates a Report for a log parsed outside a build.
func NewParseReport(source string, result *texlog.Result, duration time.Duration) *Report {
	counts := result.Counts()
	return &Report{
		Target: source,
		Passes: []Pass{{
			Step:     StepParse,
			Duration: duration,
			Counts:   &counts,
			Result:   result,
		}},
		Summary: counts,
		Final:   result,
		Metadata: Metadata{
			GeneratedAt: time.Now(),
			Duration:    duration,
		},
	}
}

// HasErrors returns true if the build failed or errors were found.
func (r *Report) HasErrors() bool {
	return r.Failed || r.Summary.Errors > 0
}
