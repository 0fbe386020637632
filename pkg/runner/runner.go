package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/ccollicutt/texrun/pkg/config"
	"github.com/ccollicutt/texrun/pkg/texlog"
)

// clipboardWriteAll is a seam for tests.
var clipboardWriteAll = clipboard.WriteAll

// Progress is told about each step as it starts and finishes.
type Progress interface {
	Start(step Step, command string)
	Done(pass PassResult)
}

type nopProgress struct{}

func (nopProgress) Start(Step, string) {}
func (nopProgress) Done(PassResult)    {}

// Runner compiles documents with the configured toolchain.
type Runner struct {
	cfg         *config.Config
	exec        Executor
	logger      *zap.Logger
	progress    Progress
	dir         string
	copyCommand bool

	latex  *texlog.Parser
	bibtex *texlog.Parser
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) {
		r.exec = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithProgress sets the step observer.
func WithProgress(p Progress) Option {
	return func(r *Runner) {
		r.progress = p
	}
}

// WithDir sets the directory commands run in and auxiliary files live in.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithClipboard controls whether the engine command line is copied to
// the system clipboard before each build. Enabled by default.
func WithClipboard(enabled bool) Option {
	return func(r *Runner) {
		r.copyCommand = enabled
	}
}

// New creates a Runner. cfg must already be validated.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:         cfg,
		exec:        NewExecExecutor(),
		logger:      zap.NewNop(),
		progress:    nopProgress{},
		copyCommand: true,
		latex:       texlog.New(texlog.WithIgnoreDuplicates(true)),
		bibtex: texlog.New(
			texlog.WithRules(texlog.BibTeXRules()...),
			texlog.WithIgnoreDuplicates(true),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EngineCommand returns the engine invocation for target.
func (r *Runner) EngineCommand(target string) Command {
	args := strings.Fields(r.cfg.EngineOptions)
	args = append(args, target)
	return Command{Name: r.cfg.Engine, Args: args, Dir: r.dir}
}

// Build runs the pipeline for target. The returned BuildResult is non-nil
// whenever the target exists, including when a step failed; its Err
// mirrors the returned error.
func (r *Runner) Build(ctx context.Context, target string, opts BuildOptions) (*BuildResult, error) {
	path := target
	if r.dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}

	job := strings.TrimSuffix(filepath.Base(target), ".tex")
	result := &BuildResult{
		Target:    target,
		Job:       job,
		PDF:       filepath.Join(r.dir, job+".pdf"),
		StartedAt: time.Now(),
	}

	engine := r.EngineCommand(target)
	if r.copyCommand {
		if err := clipboardWriteAll(engine.String()); err != nil {
			r.logger.Debug("clipboard unavailable", zap.Error(err))
		}
	}

	r.logger.Info("build started",
		zap.String("target", target),
		zap.String("engine", engine.String()))

	if !opts.NoClean {
		r.clean(result)
	}

	err = r.pipeline(ctx, engine, opts, result)

	if !opts.NoClean {
		if pass := r.clean(result); pass.Failed() && err == nil {
			err = pass.Err
		}
	}

	result.Duration = time.Since(result.StartedAt)
	result.Err = err

	r.logger.Info("build finished",
		zap.String("target", target),
		zap.Duration("duration", result.Duration),
		zap.Bool("failed", err != nil))

	return result, err
}

func (r *Runner) pipeline(ctx context.Context, engine Command, opts BuildOptions, result *BuildResult) error {
	if pass := r.record(result, r.run(ctx, StepEngine, engine, r.latex)); pass.Failed() {
		return pass.Err
	}

	if !opts.NoBibTeX {
		bib := Command{Name: r.cfg.BibTeX, Args: []string{result.Job}, Dir: r.dir}
		pass := r.run(ctx, StepBibTeX, bib, r.bibtex)
		if pass.Failed() && !opts.Strict {
			pass.Continued = true
			r.logger.Warn("bibtex failed but continuing", zap.Error(pass.Err))
		}
		r.record(result, pass)
		if pass.Failed() && !pass.Continued {
			return pass.Err
		}

		for i := 0; i < r.cfg.Reruns; i++ {
			if pass := r.record(result, r.run(ctx, StepEngine, engine, r.latex)); pass.Failed() {
				return pass.Err
			}
		}
	}

	if opts.Crop {
		crop := Command{Name: r.cfg.CropCommand, Args: []string{result.PDF, result.PDF}, Dir: r.dir}
		if pass := r.record(result, r.run(ctx, StepCrop, crop, nil)); pass.Failed() {
			return pass.Err
		}
	}

	if opts.PNG {
		png := Command{
			Name: r.cfg.PNGCommand,
			Args: []string{"-png", "-r", strconv.Itoa(r.cfg.PNGResolution), result.PDF, filepath.Join(r.dir, result.Job)},
			Dir:  r.dir,
		}
		if pass := r.record(result, r.run(ctx, StepPNG, png, nil)); pass.Failed() {
			return pass.Err
		}
	}

	if opts.Open {
		r.open(ctx, result)
	}

	return nil
}

// open never fails the build: the document exists even if no viewer does.
func (r *Runner) open(ctx context.Context, result *BuildResult) {
	cmd, err := openCommand(result.PDF)
	if err != nil {
		r.logger.Warn("not opening document", zap.Error(err))
		r.record(result, PassResult{Step: StepOpen, Err: err, ExitCode: -1, Continued: true})
		return
	}
	cmd.Dir = r.dir

	pass := r.run(ctx, StepOpen, cmd, nil)
	if pass.Failed() {
		pass.Continued = true
		r.logger.Warn("viewer failed", zap.Error(pass.Err))
	}
	r.record(result, pass)
}

func (r *Runner) clean(result *BuildResult) PassResult {
	start := time.Now()
	r.progress.Start(StepClean, "remove "+result.Job+" auxiliary files")

	pass := PassResult{Step: StepClean, Command: "remove " + result.Job + " auxiliary files"}
	paths, err := AuxFiles(r.dir, result.Job, r.cfg.Clean)
	if err == nil {
		err = removeAll(paths)
	}
	if err != nil {
		pass.ExitCode = -1
		pass.Err = &StepError{Step: StepClean, Command: pass.Command, ExitCode: -1, Err: err}
	}
	pass.Duration = time.Since(start)

	r.logger.Debug("removed auxiliary files",
		zap.String("job", result.Job),
		zap.Strings("paths", paths),
		zap.Error(err))

	return r.record(result, pass)
}

// run executes one step and parses its output when a parser is given.
func (r *Runner) run(ctx context.Context, step Step, cmd Command, parser *texlog.Parser) PassResult {
	display := cmd.String()
	r.progress.Start(step, display)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := r.exec.Run(ctx, cmd)
	pass := PassResult{
		Step:     step,
		Command:  display,
		Duration: time.Since(start),
		ExitCode: -1,
	}

	if out != nil {
		pass.ExitCode = out.ExitCode
		if parser != nil {
			pass.Result = parser.Parse(out.Stdout)
		}
		if out.Stderr != "" {
			r.logger.Debug("step stderr", zap.String("step", string(step)), zap.String("stderr", out.Stderr))
		}
	}

	if err != nil {
		pass.Err = &StepError{Step: step, Command: display, ExitCode: pass.ExitCode, Err: err}
	}

	r.logger.Debug("step finished",
		zap.String("step", string(step)),
		zap.String("command", display),
		zap.Int("exit_code", pass.ExitCode),
		zap.Duration("duration", pass.Duration))

	return pass
}

func (r *Runner) record(result *BuildResult, pass PassResult) PassResult {
	result.Passes = append(result.Passes, pass)
	r.progress.Done(pass)
	return pass
}
