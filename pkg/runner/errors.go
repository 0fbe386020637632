package runner

import (
	"errors"
	"fmt"
)

// ErrTargetNotFound is returned when the build target is not a regular file.
var ErrTargetNotFound = errors.New("target not found")

// ErrUnsupportedPlatform is returned when no viewer command is known for
// the running operating system.
var ErrUnsupportedPlatform = errors.New("cannot open documents on this platform")

// StepError describes a pipeline step that failed.
type StepError struct {
	Step    Step
	Command string

	// ExitCode is -1 when the process did not start or was killed.
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s step failed (exit %d): %s", e.Step, e.ExitCode, e.Command)
	}
	return fmt.Sprintf("%s step failed: %s: %v", e.Step, e.Command, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
