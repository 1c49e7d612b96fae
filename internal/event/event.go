// Package event defines typed events exchanged between documents, the task
// registry and the hosts. Documents emit change notifications (modified,
// selection changed, closed); tasks emit lifecycle events consumed by the CLI
// and the TUI.
package event

// Kind identifies the type of event.
type Kind int

const (
	// KindModified is emitted after a buffer's text changed.
	KindModified Kind = iota
	// KindSelectionChanged is emitted after a view's selections changed.
	KindSelectionChanged
	// KindClosed is emitted when a view is closed.
	KindClosed
	// KindTaskStarted is emitted when an external command task starts.
	KindTaskStarted
	// KindTaskFinished is emitted when a task completed and applied its results.
	KindTaskFinished
	// KindTaskFailed is emitted when a task had failing invocations or a fatal error.
	KindTaskFailed
	// KindTaskCancelled is emitted when a task reached done after cancellation.
	KindTaskCancelled
)

func (k Kind) String() string {
	switch k {
	case KindModified:
		return "modified"
	case KindSelectionChanged:
		return "selection_changed"
	case KindClosed:
		return "closed"
	case KindTaskStarted:
		return "task_started"
	case KindTaskFinished:
		return "task_finished"
	case KindTaskFailed:
		return "task_failed"
	case KindTaskCancelled:
		return "task_cancelled"
	default:
		return "unknown"
	}
}

// Event is a single typed event.
type Event struct {
	Kind   Kind
	Buffer string // buffer identity the event refers to
	View   string // view identity, empty when the event is buffer-wide
	Text   string // payload text (meaning depends on Kind)
}

// Handler is a callback that receives typed events.
type Handler func(Event)

// Modified creates a KindModified event.
func Modified(buffer, view string) Event {
	return Event{Kind: KindModified, Buffer: buffer, View: view}
}

// SelectionChanged creates a KindSelectionChanged event.
func SelectionChanged(buffer, view string) Event {
	return Event{Kind: KindSelectionChanged, Buffer: buffer, View: view}
}

// Closed creates a KindClosed event.
func Closed(buffer, view string) Event {
	return Event{Kind: KindClosed, Buffer: buffer, View: view}
}

// TaskStarted creates a KindTaskStarted event. Text carries the command line.
func TaskStarted(buffer, commandLine string) Event {
	return Event{Kind: KindTaskStarted, Buffer: buffer, Text: commandLine}
}

// TaskFinished creates a KindTaskFinished event.
func TaskFinished(buffer, text string) Event {
	return Event{Kind: KindTaskFinished, Buffer: buffer, Text: text}
}

// TaskFailed creates a KindTaskFailed event.
func TaskFailed(buffer, text string) Event {
	return Event{Kind: KindTaskFailed, Buffer: buffer, Text: text}
}

// TaskCancelled creates a KindTaskCancelled event.
func TaskCancelled(buffer, text string) Event {
	return Event{Kind: KindTaskCancelled, Buffer: buffer, Text: text}
}
