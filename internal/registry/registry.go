// Package registry tracks the live external command task of every buffer.
// At most one task may target a buffer at a time; the registry also routes
// document change notifications to cancellation and cancels everything on
// teardown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/progress"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

var (
	// ErrBusy is returned by Start when the buffer already has a live task.
	ErrBusy = errors.New("buffer already has a running external command")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("task registry closed")
)

// Config holds the collaborators shared by every task the registry starts.
type Config struct {
	Runner     task.Runner
	Dispatcher task.Dispatcher
	Panels     task.Panels
	PanelName  string
	Status     progress.Status // optional; no progress indicator without it
	Progress   progress.Options
	OnEvent    event.Handler
}

// Registry maps buffer identity to its live task.
type Registry struct {
	cfg Config

	mu     sync.Mutex
	tasks  map[string]*task.Task
	closed bool
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	return &Registry{
		cfg:   cfg,
		tasks: make(map[string]*task.Task),
	}
}

// Start creates a task of kind for doc, registers it under doc's buffer and
// starts it. Callers check TaskFor first and cancel instead of starting when
// a task of the same kind is live; Start itself refuses to replace a live
// task and returns ErrBusy.
func (r *Registry) Start(doc task.Document, commandLine string, kind task.Kind, opts task.Options) (*task.Task, error) {
	t := task.New(kind, doc, commandLine, opts, task.Config{
		Runner:     r.cfg.Runner,
		Dispatcher: r.cfg.Dispatcher,
		Panels:     r.cfg.Panels,
		PanelName:  r.cfg.PanelName,
		OnDone:     r.onTaskDone,
		OnEvent:    r.cfg.OnEvent,
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := r.tasks[t.BufferID()]; ok {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.tasks[t.BufferID()] = t
	r.mu.Unlock()

	if err := t.Start(); err != nil {
		r.onTaskDone(t)
		return nil, fmt.Errorf("start task: %w", err)
	}
	if r.cfg.Status != nil {
		progress.Start(r.cfg.Dispatcher, r.cfg.Status, t, r.cfg.Progress)
	}
	return t, nil
}

// TaskFor returns the live task for a buffer, or nil.
func (r *Registry) TaskFor(bufferID string) *task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[bufferID]
}

// Len returns the number of live tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// onTaskDone drops the entry for t's buffer, but only while it still points
// at t, so a late completion never evicts a newer task.
func (r *Registry) onTaskDone(t *task.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.tasks[t.BufferID()]; ok && cur == t {
		delete(r.tasks, t.BufferID())
		debug.Logf("[registry] released buffer %s", t.BufferID())
	}
}

// HandleEvent cancels the affected task on document changes. A buffer
// modification cancels regardless of view; selection changes and view
// closes only cancel when they come from the view that started the task.
func (r *Registry) HandleEvent(e event.Event) {
	t := r.TaskFor(e.Buffer)
	if t == nil {
		return
	}
	switch e.Kind {
	case event.KindModified:
		t.Cancel()
	case event.KindSelectionChanged, event.KindClosed:
		if t.ViewID() == e.View {
			t.Cancel()
		}
	}
}

// Watch subscribes the registry to change notifications on bus.
func (r *Registry) Watch(bus *event.Bus) (unsubscribe func()) {
	return bus.Subscribe(r.HandleEvent)
}

// Close cancels every registered task and rejects further starts.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	live := make([]*task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		live = append(live, t)
	}
	r.mu.Unlock()

	for _, t := range live {
		t.Cancel()
	}
}

// Wait blocks until every task registered at call time reached done.
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.Lock()
	live := make([]*task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		live = append(live, t)
	}
	r.mu.Unlock()

	for _, t := range live {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return fmt.Errorf("wait for tasks: %w", ctx.Err())
		}
	}
	return nil
}
