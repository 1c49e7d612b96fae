package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage shellfilter configuration",
		Long:  `View and manage shellfilter configuration.`,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration with source annotations",
		Long: `Show the fully resolved configuration with the sources it was merged from.

Configuration is loaded from multiple sources with the following precedence:
  1. Embedded defaults (built into binary)
  2. Global config (~/.config/shellfilter/config.yaml)
  3. Environment (SHELLFILTER_*)
  4. Local config (.shellfilter/config.yaml)
  5. CLI flags (highest precedence)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	})
	return configCmd
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "# Shellfilter Configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Sources (in order of precedence)")
	for _, src := range cfg.Sources() {
		fmt.Fprintf(w, "  - %s\n", src)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Directories")
	fmt.Fprintf(w, "  Global config: %s\n", cfg.ConfigDir())
	if cfg.LocalDir() != "" {
		fmt.Fprintf(w, "  Local config:  %s\n", cfg.LocalDir())
	} else {
		fmt.Fprintf(w, "  Local config:  (none detected)\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Settings")
	for _, s := range cfg.Settings() {
		fmt.Fprintf(w, "  %-17s %s\n", s.Key+":", s.Value)
	}
}
