// Package tui implements the interactive editor using bubbletea. The
// bubbletea goroutine is the UI goroutine: task completions and progress
// ticks are posted to it as messages and run inside Update.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/git"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// shutdownTimeout bounds how long Run waits for cancelled tasks after quit.
const shutdownTimeout = 10 * time.Second

// debugLogFile receives log output while the editor owns the terminal.
const debugLogFile = "shellfilter-debug.log"

// wakeMsg tells Update to drain the dispatcher queue.
type wakeMsg struct{}

// dispatcher queues closures for the bubbletea goroutine. Closures are
// queued rather than sent inside messages so the ones still pending when the
// program exits can be run by close instead of being lost.
type dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	send   func(tea.Msg)
	closed bool
}

func newDispatcher() *dispatcher {
	return &dispatcher{}
}

func (d *dispatcher) setSend(send func(tea.Msg)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.send = send
}

// Post queues fn and wakes the program. It reports false after close.
func (d *dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	send := d.send
	d.mu.Unlock()

	if send != nil {
		send(wakeMsg{})
	}
	return true
}

// drain runs every queued closure in order.
func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}

// close rejects further posts and runs what is still queued on the caller,
// which becomes the UI goroutine once the program has exited.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.drain()
}

// Run opens path in the editor and blocks until the user quits. A missing
// file starts as an empty document and is created on save. Live tasks are
// cancelled on quit.
func Run(ctx context.Context, cfg *config.Config, path string, runner task.Runner) error {
	text, err := readDocument(path)
	if err != nil {
		return err
	}

	restore, err := redirectLogs()
	if err != nil {
		return err
	}
	defer restore()

	d := newDispatcher()
	m := NewModel(cfg, path, text, runner, d)
	if dir, err := filepath.Abs(filepath.Dir(path)); err == nil {
		m.branch = branchFor(dir)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	d.setSend(p.Send)
	_, runErr := p.Run()

	m.reg.Close()
	d.close()
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.reg.Wait(waitCtx); err != nil {
		debug.Logf("[tui] %v", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run editor: %w", runErr)
	}
	return nil
}

// redirectLogs keeps log output off the alternate screen. With debug logging
// on it goes to debugLogFile in the temp dir, otherwise it is dropped.
func redirectLogs() (restore func(), err error) {
	prevLog := log.Writer()
	if !debug.Enabled() {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(prevLog) }, nil
	}
	f, err := tea.LogToFile(filepath.Join(os.TempDir(), debugLogFile), "shellfilter")
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	prevDebug := debug.SetOutput(f)
	return func() {
		debug.SetOutput(prevDebug)
		log.SetOutput(prevLog)
		_ = f.Close()
	}, nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied document
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: file is not valid UTF-8", path)
	}
	return string(data), nil
}

func branchFor(dir string) string {
	r, err := git.Open(dir)
	if err != nil {
		return ""
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		debug.Logf("[tui] branch: %v", err)
		return ""
	}
	return branch
}
