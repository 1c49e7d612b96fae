package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/shellfilter/internal/tui"
)

func newEditCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit FILE",
		Short: "Open FILE in the interactive editor",
		Long: `Open FILE in a full-screen editor where regions can be selected and
filtered through shell commands. Press ? inside the editor for key bindings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, false)
			if err != nil {
				return err
			}
			dir, err := resolveWorkingDir(cfg.Workdir, args[0])
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), cfg, args[0], newProcessRunner(cfg, dir))
		},
	}
}
