// Package ui provides terminal feedback while the toolchain runs.
package ui

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/ccollicutt/texrun/pkg/output"
	"github.com/ccollicutt/texrun/pkg/runner"
)

const spinInterval = 100 * time.Millisecond

// Spinner shows a transient spinner for the running step. It implements
// runner.Progress.
type Spinner struct {
	w       io.Writer
	noTrunc bool

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, noTrunc bool) *Spinner {
	return &Spinner{w: w, noTrunc: noTrunc}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start shows a spinner for the step.
func (s *Spinner) Start(step runner.Step, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	if !s.noTrunc {
		command = output.Truncate(command, output.CommandWidth)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription("Executing: "+command),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(spinInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	s.bar, s.stop, s.done = bar, stop, done
}

// Done removes the spinner.
func (s *Spinner) Done(runner.PassResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Spinner) stopLocked() {
	if s.bar == nil {
		return
	}
	close(s.stop)
	<-s.done
	_ = s.bar.Finish()
	s.bar, s.stop, s.done = nil, nil, nil
}
