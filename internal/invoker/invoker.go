// Package invoker is the user-facing entry point for the two external
// command actions. It resolves the command line, prompting when none was
// supplied, and decides between starting a task and cancelling the live one.
package invoker

import (
	"log"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// CancelDescription is the action description while a same-kind task is live.
const CancelDescription = "Cancel External Command"

// PromptLabel is shown in front of the command line prompt.
const PromptLabel = "Command: "

// Target is the view an action is invoked from.
type Target interface {
	task.Document
	ReadOnly() bool
}

// Registry is the subset of registry.Registry the invoker needs.
type Registry interface {
	TaskFor(bufferID string) *task.Task
	Start(doc task.Document, commandLine string, kind task.Kind, opts task.Options) (*task.Task, error)
}

// Prompt asks the user for one line of input. done is called on the UI
// goroutine; ok is false when the prompt was dismissed.
type Prompt interface {
	PromptForLine(label, initial string, done func(line string, ok bool))
}

// Action is what Run did.
type Action int

const (
	// Ignored: the action was disabled, or the command line was empty.
	Ignored Action = iota
	// Started: a new task was registered and started.
	Started
	// Cancelled: the live task of the same kind was cancelled.
	Cancelled
	// Prompted: the user is being asked for a command line.
	Prompted
)

func (a Action) String() string {
	switch a {
	case Started:
		return "started"
	case Cancelled:
		return "cancelled"
	case Prompted:
		return "prompted"
	default:
		return "ignored"
	}
}

// Invoker binds the actions to a registry and a prompt surface.
type Invoker struct {
	Registry Registry
	Prompt   Prompt // optional; without it RunPrompted starts nothing

	// OnStart, when set, is called with every task the invoker starts.
	OnStart func(*task.Task)
}

// Run performs the action of kind for v with a supplied command line. If v's
// buffer has a live task of the same kind it is cancelled instead. An empty
// commandLine starts nothing. Run must be called on the UI goroutine.
func (inv *Invoker) Run(v Target, kind task.Kind, commandLine string, opts task.Options) Action {
	if action, done := inv.cancelLive(v, kind); done {
		return action
	}
	if commandLine == "" {
		debug.Logf("[invoker] empty command line, nothing to run")
		return Ignored
	}
	return inv.start(v, kind, commandLine, opts)
}

// RunPrompted is Run for when no command line was supplied: the task starts
// with the line the user enters at the prompt. A dismissed prompt or an empty
// answer starts nothing.
func (inv *Invoker) RunPrompted(v Target, kind task.Kind, opts task.Options) Action {
	if action, done := inv.cancelLive(v, kind); done {
		return action
	}
	if inv.Prompt == nil {
		return Ignored
	}
	inv.Prompt.PromptForLine(PromptLabel, "", func(line string, ok bool) {
		if !ok || line == "" {
			debug.Logf("[invoker] prompt dismissed")
			return
		}
		inv.start(v, kind, line, opts)
	})
	return Prompted
}

// cancelLive handles the cases where the action does not start a task: it is
// disabled, or a live task of the same kind gets cancelled.
func (inv *Invoker) cancelLive(v Target, kind task.Kind) (Action, bool) {
	if !inv.Enabled(v, kind) {
		debug.Logf("[invoker] %s disabled for view %s", kind, v.ID())
		return Ignored, true
	}
	if live := inv.Registry.TaskFor(v.BufferID()); live != nil {
		live.Cancel()
		return Cancelled, true
	}
	return Ignored, false
}

func (inv *Invoker) start(v Target, kind task.Kind, commandLine string, opts task.Options) Action {
	t, err := inv.Registry.Start(v, commandLine, kind, opts)
	if err != nil {
		log.Printf("[invoker] %s %q: %v", kind, commandLine, err)
		return Ignored
	}
	if inv.OnStart != nil {
		inv.OnStart(t)
	}
	return Started
}

// Enabled reports whether the action of kind is available for v: the view
// must be writable, and any live task on its buffer must be of the same kind
// so the action can cancel it.
func (inv *Invoker) Enabled(v Target, kind task.Kind) bool {
	if v.ReadOnly() {
		return false
	}
	live := inv.Registry.TaskFor(v.BufferID())
	return live == nil || live.Kind() == kind
}

// Description is the menu text for the action of kind in v.
func (inv *Invoker) Description(v Target, kind task.Kind) string {
	if live := inv.Registry.TaskFor(v.BufferID()); live != nil && live.Kind() == kind {
		return CancelDescription
	}
	return kind.Label()
}
