//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
)

// isolate puts cmd in a process group of its own and makes context
// cancellation kill that whole group, so pipelines and background children
// of the shell go down with it. The group gets SIGKILL straight away with no
// SIGTERM grace: a cancelled task discards whatever the command would still
// write.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process)
	}
}

// killGroup sends SIGKILL to the group led by p. A group that is already
// gone reports os.ErrProcessDone.
func killGroup(p *os.Process) error {
	if p == nil || p.Pid <= 0 {
		return os.ErrProcessDone
	}
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	switch {
	case err == nil:
		debug.Logf("[process] killed pgid=%d", p.Pid)
		return nil
	case errors.Is(err, syscall.ESRCH):
		return os.ErrProcessDone
	default:
		debug.Logf("[process] kill pgid=%d: %v", p.Pid, err)
		return err
	}
}
