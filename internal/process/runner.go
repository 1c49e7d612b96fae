// Package process runs one shell command line per call, feeding it a single
// input string and collecting stdout, stderr and the exit status.
package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
)

// defaultWaitDelay bounds how long Run waits for pipes held open by
// grandchildren once the shell itself exited.
const defaultWaitDelay = 2 * time.Second

// Runner executes command lines through a shell. The zero value uses the
// platform shell and the current process environment.
type Runner struct {
	Shell     string        // interpreter, defaults to /bin/sh (cmd on windows)
	ShellFlag string        // flag before the command line, defaults to -c (/C on windows)
	Dir       string        // working directory; empty uses process cwd
	Env       []string      // base environment; nil uses os.Environ()
	Locale    string        // locale injected when Env has none
	WaitDelay time.Duration // grace period for open pipes after exit
}

// DefaultShell returns the platform interpreter and its command flag.
func DefaultShell() (shell, flag string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "/bin/sh", "-c"
}

// Run executes commandLine, writes input to its stdin, closes stdin and
// collects both output streams until the process exits. It blocks; callers
// run it off the UI goroutine. Canceling ctx kills the process group and
// Run returns an error wrapping ctx.Err(). A non-zero exit status is not an
// error; it is reported in Result.ReturnCode.
func (r *Runner) Run(ctx context.Context, commandLine, input string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context already canceled: %w", err)
	}

	shell, flag := DefaultShell()
	if r.Shell != "" {
		shell = r.Shell
		flag = r.ShellFlag
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}

	args := make([]string, 0, 2)
	if flag != "" {
		args = append(args, flag)
	}
	args = append(args, commandLine)

	cmd := exec.CommandContext(ctx, shell, args...) //nolint:gosec // command line is user supplied by design
	cmd.Dir = r.Dir
	cmd.Env = LocaleEnv(env, r.Locale)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	isolate(cmd)

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command killed: %w", ctx.Err())
		}
		return nil, &SpawnError{Shell: shell, Err: err}
	}
	debug.Logf("[process] started pid=%d: %s", cmd.Process.Pid, commandLine)

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("command killed: %w", ctx.Err())
	}
	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("run %q: %w", commandLine, waitErr)
	}
	code := cmd.ProcessState.ExitCode()
	debug.Logf("[process] pid=%d exited with %d", cmd.Process.Pid, code)

	if !utf8.Valid(stdout.Bytes()) {
		return nil, &DecodeError{Stream: "stdout"}
	}
	if !utf8.Valid(stderr.Bytes()) {
		return nil, &DecodeError{Stream: "stderr"}
	}

	return NewResult(stdout.String(), stderr.String(), code), nil
}
