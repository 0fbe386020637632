package commands

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/texrun/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a texrun configuration file without building anything.

Checks:
  - YAML syntax
  - Rerun bounds and clean patterns
  - Watch extensions
  - Webhook URLs and triggers
  - Toolchain binaries on PATH (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Engine:   %s %s\n", cfg.Engine, cfg.EngineOptions)
	fmt.Fprintf(out, "  BibTeX:   %s (%d rerun(s))\n", cfg.BibTeX, cfg.Reruns)
	fmt.Fprintf(out, "  Timeout:  %s\n", cfg.Timeout)
	fmt.Fprintf(out, "  Clean:    %s\n", strings.Join(cfg.Clean, " "))
	fmt.Fprintf(out, "  Watch:    %s (debounce %s)\n", strings.Join(cfg.Watch.Extensions, " "), cfg.Watch.Debounce)
	fmt.Fprintf(out, "  Webhooks: %d\n", len(cfg.Webhooks))

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, wh.Trigger, name)
	}

	// Missing binaries are only warnings; the config may target another machine.
	var missing []string
	for _, bin := range []string{cfg.Engine, cfg.BibTeX, cfg.CropCommand, cfg.PNGCommand} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "\nWarning: not found on PATH: %s\n", strings.Join(missing, ", "))
	}

	return nil
}
