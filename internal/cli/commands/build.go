package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/texrun/internal/cli/ui"
	"github.com/ccollicutt/texrun/pkg/config"
	"github.com/ccollicutt/texrun/pkg/output"
	"github.com/ccollicutt/texrun/pkg/runner"
	"github.com/ccollicutt/texrun/pkg/watch"
	"github.com/ccollicutt/texrun/pkg/webhook"
)

// BuildOptions holds command-line options for the build command.
type BuildOptions struct {
	NoBibTeX bool
	Strict   bool
	Open     bool
	Watch    bool
	NoTrunc  bool
	Silent   bool
	Verbose  bool
	Crop     bool
	PNG      bool
	NoClean  bool

	Output     string
	ConfigFile string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(g *Globals) *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build <target> [engine] [engine-options]",
		Short: "Compile a LaTeX document and summarize the log",
		Long: `Compile a LaTeX document with the engine, run the bibliography and the
reruns it needs, and report errors, warnings and typesetting issues.

The engine defaults to pdflatex with "-shell-escape -halt-on-error".
With --watch, the target's directory is watched and the document is rebuilt
when a .tex or .bib file changes. A target of "." watches the working
directory and compiles whichever .tex file changed.

Exit codes:
  0 - Build succeeded with no errors
  1 - Build failed or errors were reported
  2 - Configuration or runtime error`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts, g)
		},
	}

	cmd.Flags().BoolVar(&opts.NoBibTeX, "nobibtex", false, "Do not run bibtex")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Stop when bibtex exits non-zero")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the PDF when it is generated")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Rebuild when sources change")
	cmd.Flags().BoolVar(&opts.NoTrunc, "notrunc", false, "Do not truncate displayed commands")
	cmd.Flags().BoolVar(&opts.Silent, "silent", false, "Suppress the error listing")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show all errors, warnings and typesetting issues")
	cmd.Flags().BoolVar(&opts.Crop, "crop", false, "Crop the PDF margins")
	cmd.Flags().BoolVar(&opts.PNG, "png", false, "Convert the PDF to PNG")
	cmd.Flags().BoolVar(&opts.NoClean, "no-clean", false, "Keep auxiliary files")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (default "+config.DefaultConfigFile+" if present)")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnErrors), "When to fire webhook (on_errors|always|never)")

	return cmd
}

// builder compiles one target and reports on it.
type builder struct {
	runner     *runner.Runner
	formatter  output.Formatter
	webhooks   *webhook.Client
	hooks      []config.WebhookConfig
	configFile string
	out        io.Writer
}

// build returns whether the document has errors. err is only set when no
// report could be produced.
func (b *builder) build(ctx context.Context, target string, opts runner.BuildOptions) (bool, error) {
	result, err := b.runner.Build(ctx, target, opts)
	if result == nil {
		return false, err
	}

	report := output.NewBuildReport(result, b.configFile)
	if err := b.formatter.Format(ctx, report, b.out); err != nil {
		return false, fmt.Errorf("formatting output: %w", err)
	}

	b.webhooks.Notify(ctx, b.hooks, report)
	return report.HasErrors(), nil
}

func runBuild(cmd *cobra.Command, args []string, opts *BuildOptions, g *Globals) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := g.logger()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	cfg, err := config.LoadOrDefault(ctx, opts.ConfigFile, cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(args) > 1 {
		cfg.Engine = args[1]
	}
	if len(args) > 2 {
		cfg.EngineOptions = args[2]
	}

	formatter, err := output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Silent,
		NoTrunc: opts.NoTrunc,
		Compact: opts.Watch,
	})
	if err != nil {
		return err
	}

	hooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	if formatter.Name() == "text" && ui.IsTerminal(os.Stderr) {
		runnerOpts = append(runnerOpts, runner.WithProgress(ui.NewSpinner(os.Stderr, opts.NoTrunc)))
	}

	b := &builder{
		runner:     runner.New(cfg, runnerOpts...),
		formatter:  formatter,
		webhooks:   webhook.NewClient(webhook.WithLogger(logger)),
		hooks:      hooks,
		configFile: opts.ConfigFile,
		out:        cmd.OutOrStdout(),
	}

	buildOpts := runner.BuildOptions{
		NoBibTeX: opts.NoBibTeX,
		Strict:   opts.Strict,
		Open:     opts.Open,
		Crop:     opts.Crop,
		PNG:      opts.PNG,
		NoClean:  opts.NoClean,
	}

	target := args[0]
	if opts.Watch {
		return runWatch(ctx, cmd, b, target, buildOpts, cfg, logger)
	}

	hasErrors, err := b.build(ctx, target, buildOpts)
	if err != nil {
		return err
	}
	if hasErrors {
		ExitCode = 1
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cobra.Command, b *builder, target string, opts runner.BuildOptions, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("%w: %s", runner.ErrTargetNotFound, target)
	}
	directoryMode := info.IsDir()

	handler := func(ctx context.Context, ev watch.Event) {
		bo := opts
		if !ev.First {
			bo.Open = false
		}

		doc := target
		if directoryMode {
			doc = ev.Target
		}

		rel, err := filepath.Rel(filepath.Dir(ev.Target), ev.Path)
		if err != nil {
			rel = ev.Path
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Recompiling because %s changed\n", rel)

		if _, err := b.build(ctx, doc, bo); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	w, err := watch.New(target, handler,
		watch.WithLogger(logger),
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithExtensions(cfg.Watch.Extensions...),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", w.Dir())

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *BuildOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("--webhook-url: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}
