// Package task models one user-initiated run of an external command against
// the regions of a document. A task invokes the command once per region,
// sequentially, on a worker goroutine, then hands the results back to the UI
// goroutine, which applies them or reports failures.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
)

// DefaultPanelName is the error panel used when Config.PanelName is empty.
const DefaultPanelName = "external_command_errors"

var (
	// ErrCancelled short-circuits the invocation loop. It never reaches the user.
	ErrCancelled = errors.New("task cancelled")
	// ErrAlreadyStarted is returned by Start on a task that is not fresh.
	ErrAlreadyStarted = errors.New("task already started")
)

// State is the lifecycle position of a task.
type State int

const (
	// StateCreated: constructed, Start not called.
	StateCreated State = iota
	// StateRunning: invocations in progress or results pending on the UI goroutine.
	StateRunning
	// StateSucceeded: all invocations exited 0 and results were applied.
	StateSucceeded
	// StateFailed: some invocation exited non-zero, or a fatal error aborted the task.
	StateFailed
	// StateCancelled: cancelled before results were applied; nothing was written.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Config wires a task to its collaborators.
type Config struct {
	Runner     Runner
	Dispatcher Dispatcher
	Panels     Panels        // optional; failures are only logged without it
	PanelName  string        // defaults to DefaultPanelName
	OnDone     func(*Task)   // called exactly once, after done is set
	OnEvent    event.Handler // optional lifecycle events
}

// Task is one external command run. Create with New, then Start it from the
// UI goroutine. Tasks are never restarted.
type Task struct {
	id          string
	kind        Kind
	opts        Options
	doc         Document
	bufferID    string
	viewID      string
	commandLine string
	cfg         Config

	ctx    context.Context
	cancel context.CancelFunc

	cancelled atomic.Bool
	done      atomic.Bool
	running   atomic.Bool
	doneCh    chan struct{}

	mu       sync.Mutex
	applying bool // set under mu once results are committed to be applied
	state    State
	regions  []document.Region
	results  []*process.Result
	err      error
	failures []string
}

// New creates a task of kind targeting doc.
func New(kind Kind, doc Document, commandLine string, opts Options, cfg Config) *Task {
	if cfg.PanelName == "" {
		cfg.PanelName = DefaultPanelName
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		id:          uuid.NewString(),
		kind:        kind,
		opts:        opts,
		doc:         doc,
		bufferID:    doc.BufferID(),
		viewID:      doc.ID(),
		commandLine: commandLine,
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		doneCh:      make(chan struct{}),
	}
}

// ID returns the task identity.
func (t *Task) ID() string { return t.id }

// Kind returns the task variant.
func (t *Task) Kind() Kind { return t.kind }

// CommandLine returns the command being run.
func (t *Task) CommandLine() string { return t.commandLine }

// BufferID returns the identity of the targeted buffer.
func (t *Task) BufferID() string { return t.bufferID }

// ViewID returns the identity of the view the task was started from.
func (t *Task) ViewID() string { return t.viewID }

// Cancelled reports whether Cancel was called. Once true it stays true.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// IsDone reports whether the task reached its completion step.
func (t *Task) IsDone() bool { return t.done.Load() }

// Done returns a channel closed when the task reached its completion step.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

// Running reports whether an invocation is currently in flight.
func (t *Task) Running() bool { return t.running.Load() }

// State returns the lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the fatal error that aborted the task, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Regions returns the regions captured at start.
func (t *Task) Regions() []document.Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]document.Region(nil), t.regions...)
}

// Results returns the invocation results in region order. Empty unless
// every invocation completed.
func (t *Task) Results() []*process.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*process.Result(nil), t.results...)
}

// Failures returns the error messages reported to the panel.
func (t *Task) Failures() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.failures...)
}

// Start captures the regions and their text, then launches the invocation
// loop on a worker goroutine. It must be called on the UI goroutine.
func (t *Task) Start() error {
	t.mu.Lock()
	if t.state != StateCreated {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.regions = t.kind.regions(t.doc, t.opts)
	inputs := t.kind.inputs(t.doc, t.regions)
	t.state = StateRunning
	t.mu.Unlock()

	debug.Logf("[task] %s start %s on %d region(s): %s", t.id, t.kind, len(inputs), t.commandLine)
	t.emit(event.TaskStarted(t.bufferID, t.commandLine))

	go t.run(inputs)
	return nil
}

// Cancel requests cancellation. Before a spawn it prevents the spawn; during
// an invocation it kills the process; after the invocations it suppresses
// applying the results. Calling Cancel more than once, or after done, is
// harmless. Once results are being applied Cancel has no effect, so the
// task's own edit notification cannot cancel it.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.applying || t.done.Load() || t.cancelled.Load() {
		t.mu.Unlock()
		return
	}
	t.cancelled.Store(true)
	t.mu.Unlock()

	debug.Logf("[task] %s cancel requested", t.id)
	t.cancel()
}

func (t *Task) run(inputs []string) {
	var results []*process.Result
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in command task: %v", r)
			}
		}()
		results, err = t.invokeAll(inputs)
	}()

	if !t.cfg.Dispatcher.Post(func() { t.complete(results, err) }) {
		// The UI loop is gone; nothing can be applied, but done must still be reached.
		t.Cancel()
		t.complete(nil, ErrCancelled)
	}
}

// invokeAll runs the command once per input, in order. Cancellation is
// checked before every spawn.
func (t *Task) invokeAll(inputs []string) ([]*process.Result, error) {
	results := make([]*process.Result, 0, len(inputs))
	for _, input := range inputs {
		if t.cancelled.Load() {
			return nil, ErrCancelled
		}
		t.running.Store(true)
		res, err := t.cfg.Runner.Run(t.ctx, t.commandLine, input)
		t.running.Store(false)
		if err != nil {
			if t.cancelled.Load() || errors.Is(err, context.Canceled) {
				return nil, ErrCancelled
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// complete runs on the UI goroutine. It applies results unless the task was
// cancelled, reports failures, and always ends in finish.
func (t *Task) complete(results []*process.Result, err error) {
	state := StateSucceeded
	defer func() { t.finish(state) }()

	if errors.Is(err, ErrCancelled) || t.cancelled.Load() {
		state = StateCancelled
		return
	}
	if err != nil {
		state = StateFailed
		t.setErr(err)
		log.Printf("[task] %q aborted: %v", t.commandLine, err)
		t.report([]string{"Command failed: " + err.Error()})
		return
	}

	// Cancel and the start of apply exclude each other: either the
	// cancellation lands first and nothing is applied, or it is ignored.
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		state = StateCancelled
		return
	}
	t.applying = true
	t.results = results
	regions := t.regions
	t.mu.Unlock()

	outputs := make([]string, len(results))
	var failed []string
	for i, res := range results {
		outputs[i] = res.Output()
		if res.Failed() {
			failed = append(failed, res.ErrorMessage())
		}
	}

	applyErr := ApplyResults(t.doc, regions, outputs)
	if applyErr != nil {
		state = StateFailed
		t.setErr(applyErr)
		failed = append(failed, "Command failed: "+applyErr.Error())
	}
	if len(failed) > 0 {
		state = StateFailed
		t.report(failed)
	}
}

func (t *Task) finish(state State) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	t.done.Store(true)
	t.cancel()
	close(t.doneCh)
	debug.Logf("[task] %s done: %s", t.id, state)

	switch state {
	case StateCancelled:
		t.emit(event.TaskCancelled(t.bufferID, t.commandLine))
	case StateFailed:
		t.emit(event.TaskFailed(t.bufferID, t.commandLine))
	default:
		t.emit(event.TaskFinished(t.bufferID, t.commandLine))
	}

	if t.cfg.OnDone != nil {
		t.cfg.OnDone(t)
	}
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// report replaces the error panel contents with msgs and shows it.
func (t *Task) report(msgs []string) {
	t.mu.Lock()
	t.failures = append(t.failures, msgs...)
	t.mu.Unlock()

	if t.cfg.Panels == nil {
		for _, m := range msgs {
			log.Printf("[task] %s", m)
		}
		return
	}
	w := t.cfg.Panels.CreatePanel(t.cfg.PanelName)
	if _, err := io.WriteString(w, strings.Join(msgs, "\n")); err != nil {
		log.Printf("[task] write error panel: %v", err)
	}
	t.cfg.Panels.ShowPanel(t.cfg.PanelName)
}

func (t *Task) emit(e event.Event) {
	if t.cfg.OnEvent != nil {
		t.cfg.OnEvent(e)
	}
}
