//go:build windows

package process

import "os/exec"

// isolate is a no-op: without process groups the CommandContext default of
// killing the shell process is all cancellation can do.
func isolate(_ *exec.Cmd) {}
