// Package cli implements the command-line interface for shellfilter.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	shell   string
	workdir string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "shellfilter",
		Short: "Filter document regions through shell commands",
		Long: `Shellfilter runs a shell command against regions of a text file: each
region is piped through the command and replaced by its output, or the
command's output is inserted at cursor offsets. Commands run asynchronously
and can be cancelled; failures are collected into an error panel.`,
		Version:      fmt.Sprintf("%s (%s, %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.shell, "shell", "", "Shell used to run commands (default from config)")
	root.PersistentFlags().StringVar(&g.workdir, "workdir", "", "Command working directory: cwd, file or repo")

	root.AddCommand(newFilterCmd(g))
	root.AddCommand(newInsertCmd(g))
	root.AddCommand(newEditCmd(g))
	root.AddCommand(newConfigCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves configuration and applies the flag overrides.
func loadConfig(g *globalFlags, fullLine bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyCLIFlags(g.shell, g.workdir, fullLine)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
