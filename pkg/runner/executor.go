package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Output is what a finished process produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs external commands.
type Executor interface {
	// Run executes cmd and waits for it. When the process ran, the Output
	// is returned even if err is non-nil.
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExecExecutor runs commands with os/exec.
type ExecExecutor struct{}

// NewExecExecutor creates an executor for real processes.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Run executes cmd. The process is killed when ctx is done.
func (e *ExecExecutor) Run(ctx context.Context, cmd Command) (*Output, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) // #nosec G204 -- running the configured toolchain is the point
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	out := &Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = -1
		return out, fmt.Errorf("%s interrupted: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, err
	}

	return nil, fmt.Errorf("starting %s: %w", cmd.Name, err)
}
