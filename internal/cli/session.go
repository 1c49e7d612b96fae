package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/git"
	"github.com/alexander-akhmetov/shellfilter/internal/headless"
	"github.com/alexander-akhmetov/shellfilter/internal/invoker"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
	"github.com/alexander-akhmetov/shellfilter/internal/progress"
	"github.com/alexander-akhmetov/shellfilter/internal/registry"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
	"github.com/alexander-akhmetov/shellfilter/internal/uiloop"
)

// shutdownTimeout bounds how long a session waits for cancelled tasks.
const shutdownTimeout = 10 * time.Second

// ErrInterrupted is returned when a signal ended the session.
var ErrInterrupted = errors.New("interrupted")

// SessionConfig holds everything one headless run needs.
type SessionConfig struct {
	Config      *config.Config
	File        string
	Kind        task.Kind
	CommandLine string            // empty starts nothing unless PromptForCommand
	Regions     []document.Region // selections (replace) or cursors (insert)

	// PromptForCommand asks for the command line on In instead of using
	// CommandLine.
	PromptForCommand bool

	Runner  task.Runner // nil builds a process.Runner from Config
	In      io.Reader   // prompt input
	Err     io.Writer   // status line, panels, events
	IsTTY   bool
	Verbose bool
}

// Outcome is what a session did to the document.
type Outcome struct {
	Path   string
	Task   *task.Task // nil when nothing was started
	Before string
	After  string
}

// Failed reports whether the task ran and failed.
func (o *Outcome) Failed() bool {
	return o.Task != nil && o.Task.State() == task.StateFailed
}

// RunSession loads the file, runs one action against it on a private UI loop
// and returns once the task reached done. SIGINT and SIGTERM cancel the
// task through registry teardown.
func RunSession(ctx context.Context, sc SessionConfig) (*Outcome, error) {
	data, err := os.ReadFile(sc.File) //nolint:gosec // user-supplied document
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sc.File, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read %s: file is not valid UTF-8", sc.File)
	}

	cfg := sc.Config
	bus := event.NewBus()
	buf := document.NewBuffer(string(data), bus)
	buf.SetPath(sc.File)
	view := buf.NewView()
	if err := setSelections(view, sc.Kind, sc.Regions); err != nil {
		return nil, err
	}

	runner := sc.Runner
	if runner == nil {
		dir, err := resolveWorkingDir(cfg.Workdir, sc.File)
		if err != nil {
			return nil, err
		}
		runner = newProcessRunner(cfg, dir)
	}

	loop := uiloop.New()
	surface := headless.New(loop, sc.In, sc.Err, sc.IsTTY)

	regCfg := registry.Config{
		Runner:     runner,
		Dispatcher: loop,
		Panels:     surface,
		PanelName:  cfg.PanelName,
		Status:     surface,
		Progress: progress.Options{
			Key:      cfg.StatusKey,
			Width:    cfg.SpinnerWidth,
			Interval: cfg.TickInterval(),
		},
	}
	if sc.Verbose {
		regCfg.OnEvent = surface.WriteEvent
	}
	reg := registry.New(regCfg)
	defer reg.Watch(bus)()

	var started *task.Task
	inv := &invoker.Invoker{
		Registry: reg,
		Prompt: promptFunc(func(label, initial string, done func(string, bool)) {
			surface.PromptForLine(label, initial, func(line string, ok bool) {
				done(line, ok)
				if started == nil {
					loop.Stop()
				}
			})
		}),
		OnStart: func(t *task.Task) {
			started = t
			go func() {
				<-t.Done()
				loop.Post(loop.Stop)
			}()
		},
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		debug.Logf("[cli] closing task registry")
		reg.Close()
		loop.Post(func() {
			if started == nil {
				loop.Stop()
			}
		})
	}()

	before := buf.Text()
	loop.Post(func() {
		opts := task.Options{FullLine: cfg.FullLine}
		var action invoker.Action
		if sc.PromptForCommand {
			action = inv.RunPrompted(view, sc.Kind, opts)
		} else {
			action = inv.Run(view, sc.Kind, sc.CommandLine, opts)
		}
		debug.Logf("[cli] %s: %s", sc.Kind, action)
		if action == invoker.Ignored {
			loop.Stop()
		}
	})
	_ = loop.Run(context.Background())
	surface.EraseStatus(cfg.StatusKey)

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reg.Wait(waitCtx); err != nil {
		return nil, err
	}

	out := &Outcome{Path: sc.File, Task: started, Before: before, After: buf.Text()}
	if sigCtx.Err() != nil && ctx.Err() == nil {
		return out, ErrInterrupted
	}
	return out, nil
}

type promptFunc func(label, initial string, done func(string, bool))

func (f promptFunc) PromptForLine(label, initial string, done func(string, bool)) {
	f(label, initial, done)
}

func setSelections(v *document.View, kind task.Kind, regions []document.Region) error {
	size := v.Size()
	for _, r := range regions {
		if r.End > size {
			return fmt.Errorf("region %s outside document of size %d", r, size)
		}
	}
	if len(regions) > 0 {
		v.SetSelections(regions...)
		return nil
	}
	if kind == task.KindInsert {
		v.SetSelections(document.Point(size))
	}
	return nil
}

func newProcessRunner(cfg *config.Config, dir string) *process.Runner {
	return &process.Runner{
		Shell:     cfg.Shell,
		ShellFlag: cfg.ShellFlag,
		Dir:       dir,
		Env:       os.Environ(),
		Locale:    cfg.Locale,
		WaitDelay: cfg.WaitDelay(),
	}
}

// resolveWorkingDir maps a workdir mode to the directory commands run in.
func resolveWorkingDir(mode, file string) (string, error) {
	switch mode {
	case config.WorkdirFile, config.WorkdirRepo:
		abs, err := filepath.Abs(file)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", file, err)
		}
		dir := filepath.Dir(abs)
		if mode == config.WorkdirRepo {
			return git.RootFor(dir), nil
		}
		return dir, nil
	case config.WorkdirCwd, "":
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	default:
		return "", fmt.Errorf("unknown workdir mode %q", mode)
	}
}
