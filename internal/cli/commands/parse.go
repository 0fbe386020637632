package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/texrun/pkg/output"
	"github.com/ccollicutt/texrun/pkg/texlog"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	BibTeX         bool
	KeepDuplicates bool
	MaxPrintLine   int
	Output         string
	Verbose        bool
	Quiet          bool
}

// NewParseCommand creates the parse command.
func NewParseCommand(g *Globals) *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <log-file|->",
		Short: "Summarize an existing engine log",
		Long: `Classify a saved LaTeX (or, with --bibtex, BibTeX) log into errors,
warnings and typesetting issues without running anything. Use "-" to read
from standard input.

Exit codes:
  0 - No errors in the log
  1 - Errors in the log
  2 - Runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts, g)
		},
	}

	cmd.Flags().BoolVar(&opts.BibTeX, "bibtex", false, "Parse BibTeX output instead of engine output")
	cmd.Flags().BoolVar(&opts.KeepDuplicates, "keep-duplicates", false, "Report repeated diagnostics every time")
	cmd.Flags().IntVar(&opts.MaxPrintLine, "max-print-line", 0, "Engine wrap column (0 for the TeX default, negative to disable)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show warnings and typesetting issues")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions, g *Globals) error {
	source := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter, err := output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	raw, err := readLog(cmd, source)
	if err != nil {
		return err
	}

	parserOpts := []texlog.Option{
		texlog.WithIgnoreDuplicates(!opts.KeepDuplicates),
		texlog.WithMaxPrintLine(opts.MaxPrintLine),
	}
	if opts.BibTeX {
		parserOpts = append(parserOpts, texlog.WithRules(texlog.BibTeXRules()...))
	}

	start := time.Now()
	result := texlog.New(parserOpts...).Parse(raw)
	report := output.NewParseReport(source, result, time.Since(start))

	g.logger().Debug("log parsed",
		zap.String("source", source),
		zap.Int("bytes", len(raw)),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)))

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.HasErrors() {
		ExitCode = 1
	}
	return nil
}

func readLog(cmd *cobra.Command, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source) // #nosec G304 -- user-provided log path is expected
	if err != nil {
		return "", fmt.Errorf("reading log: %w", err)
	}
	return string(data), nil
}
