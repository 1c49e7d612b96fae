package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/report"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// ErrCommandFailed is returned when some invocation exited non-zero or the
// task aborted.
var ErrCommandFailed = errors.New("external command failed")

// actionFlags are shared by filter and insert.
type actionFlags struct {
	command string
	write   bool
	diff    bool
	json    bool
	verbose bool
}

func (f *actionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.command, "command", "c", "", "Command line to run (prompted for when omitted)")
	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "Write the result back to FILE instead of stdout")
	cmd.Flags().BoolVar(&f.diff, "diff", false, "Print a unified diff instead of the document")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print a JSON report instead of the document")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print task lifecycle events")
	cmd.MarkFlagsMutuallyExclusive("diff", "json")
}

func newFilterCmd(g *globalFlags) *cobra.Command {
	var (
		flags    actionFlags
		regions  []string
		fullLine bool
	)
	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Replace regions of FILE with a command's output",
		Long: `Pipe each region of FILE through a shell command and replace it with the
command's output. Without --region the whole file is one region.

Examples:
  shellfilter filter notes.txt -c 'sort'
  shellfilter filter main.go -r 120:480 -c 'tr a-z A-Z' --diff
  shellfilter filter list.md -r 10:11 --full-line -c 'sort -u' -w`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseRegions(regions)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g, fullLine)
			if err != nil {
				return err
			}
			return runAction(cmd, cfg, task.KindReplace, args[0], parsed, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&regions, "region", "r", nil, "Region BEGIN:END in characters (repeatable)")
	cmd.Flags().BoolVar(&fullLine, "full-line", false, "Extend every region to whole lines")
	return cmd
}

func newInsertCmd(g *globalFlags) *cobra.Command {
	var (
		flags   actionFlags
		offsets []int
	)
	cmd := &cobra.Command{
		Use:   "insert FILE",
		Short: "Insert a command's output into FILE",
		Long: `Run a shell command with empty input and insert its output at every --at
offset. Without --at the output is appended to the end of FILE.

Examples:
  shellfilter insert log.md -c 'date' --at 0
  shellfilter insert notes.txt -c 'uuidgen' --at 10 --at 42 -w`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cursors := make([]document.Region, 0, len(offsets))
			for _, off := range offsets {
				if off < 0 {
					return fmt.Errorf("invalid offset %d: must not be negative", off)
				}
				cursors = append(cursors, document.Point(off))
			}
			cfg, err := loadConfig(g, false)
			if err != nil {
				return err
			}
			return runAction(cmd, cfg, task.KindInsert, args[0], cursors, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntSliceVar(&offsets, "at", nil, "Cursor offset in characters (repeatable)")
	return cmd
}

func parseRegions(specs []string) ([]document.Region, error) {
	regions := make([]document.Region, 0, len(specs))
	for _, s := range specs {
		r, err := document.ParseRegion(s)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func runAction(cmd *cobra.Command, cfg *config.Config, kind task.Kind, file string, regions []document.Region, flags actionFlags) error {
	outcome, err := RunSession(cmd.Context(), SessionConfig{
		Config:      cfg,
		File:        file,
		Kind:        kind,
		CommandLine: strings.TrimSpace(flags.command),
		Regions:     regions,

		PromptForCommand: !cmd.Flags().Changed("command"),

		In:      cmd.InOrStdin(),
		Err:     cmd.ErrOrStderr(),
		IsTTY:   isTerminal(cmd.ErrOrStderr()),
		Verbose: flags.verbose,
	})
	if err != nil {
		return err
	}
	return writeOutcome(cmd.OutOrStdout(), outcome, flags, isTerminal(cmd.OutOrStdout()))
}

// writeOutcome prints or saves the result of a session.
func writeOutcome(out io.Writer, o *Outcome, flags actionFlags, color bool) error {
	if o.Task == nil {
		return nil
	}

	switch {
	case flags.json:
		js, err := report.FromTask(o.Path, o.Task, o.Before, o.After).JSON(color)
		if err != nil {
			return err
		}
		if _, err := out.Write(js); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	case flags.diff:
		fmt.Fprint(out, report.Diff(o.Path, o.Before, o.After))
	case !flags.write:
		fmt.Fprint(out, o.After)
	}

	if flags.write && o.After != o.Before {
		if err := writeFile(o.Path, o.After); err != nil {
			return err
		}
	}

	switch o.Task.State() {
	case task.StateFailed:
		return ErrCommandFailed
	case task.StateCancelled:
		return ErrInterrupted
	}
	return nil
}

// writeFile replaces path's contents, keeping its permissions.
func writeFile(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
