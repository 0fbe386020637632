// Package runner drives the external typesetting toolchain for one document:
// cleanup, engine passes, bibliography, post-processing and viewing.
package runner

import (
	"strings"
	"time"

	"github.com/ccollicutt/texrun/pkg/texlog"
)

// Step names a stage of the compile pipeline.
type Step string

const (
	StepClean  Step = "clean"
	StepEngine Step = "engine"
	StepBibTeX Step = "bibtex"
	StepCrop   Step = "crop"
	StepPNG    Step = "png"
	StepOpen   Step = "open"
)

// Command is an external program invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command the way a user would type it, quoting
// arguments that contain whitespace.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// BuildOptions selects the optional parts of the pipeline for one build.
type BuildOptions struct {
	// NoBibTeX skips the bibliography step and the engine reruns after it.
	NoBibTeX bool

	// Strict aborts the build when the bibliography step fails.
	Strict bool

	Open    bool
	Crop    bool
	PNG     bool
	NoClean bool
}

// PassResult records one executed step.
type PassResult struct {
	Step     Step
	Command  string
	ExitCode int
	Duration time.Duration

	// Result is the parsed console output of engine and bibliography steps.
	Result *texlog.Result

	// Err is non-nil when the step failed.
	Err error

	// Continued is set when the step failed without aborting the build.
	Continued bool
}

// Failed reports whether the step did not succeed.
func (p PassResult) Failed() bool {
	return p.Err != nil
}

// BuildResult is the outcome of one Build call.
type BuildResult struct {
	Target string

	// Job is the target's base name without the .tex extension.
	Job string

	// PDF is the expected output document.
	PDF string

	Passes    []PassResult
	StartedAt time.Time
	Duration  time.Duration

	// Err is the error Build returned, if any.
	Err error
}

// Failed reports whether the build aborted.
func (b *BuildResult) Failed() bool {
	return b.Err != nil
}

// LastEngine returns the final engine pass, which reflects the state of
// the document after all reruns.
func (b *BuildResult) LastEngine() (PassResult, bool) {
	for i := len(b.Passes) - 1; i >= 0; i-- {
		if b.Passes[i].Step == StepEngine {
			return b.Passes[i], true
		}
	}
	return PassResult{}, false
}

// HasErrors returns true if the build failed or the final engine pass
// reported errors.
func (b *BuildResult) HasErrors() bool {
	if b.Failed() {
		return true
	}
	last, ok := b.LastEngine()
	return ok && last.Result != nil && last.Result.HasErrors()
}
