// Package cli provides the command-line interface for texrun.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ccollicutt/texrun/internal/cli/commands"
	"github.com/ccollicutt/texrun/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], plugins.DefaultFinder())
}

func run(ctx context.Context, args []string, finder *plugins.Finder) int {
	commands.ExitCode = 0
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)

	name := pluginCandidate(rootCmd, args)
	if name != "" {
		if path, err := finder.Find(name); err == nil {
			return plugins.Run(ctx, path, args[1:], plugins.Streams{
				In:  os.Stdin,
				Out: rootCmd.OutOrStdout(),
				Err: rootCmd.ErrOrStderr(),
			})
		}
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if name != "" {
			_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), plugins.NotFoundMessage(name))
			return 2
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument when it is not a flag or a
// built-in command.
func pluginCandidate(rootCmd *cobra.Command, args []string) string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return ""
	}
	name := args[0]
	if name == "help" || name == "completion" {
		return ""
	}
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return ""
		}
	}
	return name
}

// newLogger builds the production logger, at Warn unless debug is set.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	g := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "texrun",
		Short: "Compile LaTeX and summarize the log",
		Long: `texrun runs a LaTeX build (engine, bibtex, reruns) and condenses the
engine's console output into errors, warnings, citation warnings and
typesetting issues, each with its source file and line.

It can also crop the result, convert it to PNG, open it in a viewer,
rebuild on file changes, and post build reports to webhooks.

PLUGINS:
  Unknown commands run a texrun-<command> binary found next to texrun,
  in ~/.texrun/plugins/, or anywhere in PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(g.Debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.Logger != nil {
				_ = g.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&g.Debug, "debug", false, "Write debug logs to stderr")

	rootCmd.AddCommand(commands.NewBuildCommand(g))
	rootCmd.AddCommand(commands.NewParseCommand(g))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
