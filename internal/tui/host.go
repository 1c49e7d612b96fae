package tui

import (
	"io"
	"slices"
	"strings"

	"github.com/alexander-akhmetov/shellfilter/internal/event"
)

// maxLogLines bounds the lifecycle log kept for the status bar.
const maxLogLines = 200

// host implements the status, panel and prompt surfaces for the model. It is
// only touched on the bubbletea goroutine: from Update, or from closures the
// dispatcher delivers to Update.
type host struct {
	status   map[string]string
	order    []string
	panels   map[string]*strings.Builder
	shown    string
	prompt   *pendingPrompt
	log      []string
	lastKind event.Kind
}

type pendingPrompt struct {
	label   string
	initial string
	done    func(line string, ok bool)
}

func newHost() *host {
	return &host{
		status: make(map[string]string),
		panels: make(map[string]*strings.Builder),
	}
}

// SetStatus sets the transient status for key.
func (h *host) SetStatus(key, text string) {
	if _, ok := h.status[key]; !ok {
		h.order = append(h.order, key)
	}
	h.status[key] = text
}

// EraseStatus clears the status for key.
func (h *host) EraseStatus(key string) {
	if _, ok := h.status[key]; !ok {
		return
	}
	delete(h.status, key)
	h.order = slices.DeleteFunc(h.order, func(k string) bool { return k == key })
}

// statusLine joins the live statuses in the order they first appeared.
func (h *host) statusLine() string {
	parts := make([]string, 0, len(h.order))
	for _, k := range h.order {
		parts = append(parts, h.status[k])
	}
	return strings.Join(parts, "  ")
}

// CreatePanel replaces the panel called name with an empty one.
func (h *host) CreatePanel(name string) io.Writer {
	b := &strings.Builder{}
	h.panels[name] = b
	return b
}

// ShowPanel makes name the visible panel.
func (h *host) ShowPanel(name string) {
	if _, ok := h.panels[name]; ok {
		h.shown = name
	}
}

func (h *host) hidePanel() {
	h.shown = ""
}

// visiblePanel returns the shown panel's name and contents.
func (h *host) visiblePanel() (string, string, bool) {
	if h.shown == "" {
		return "", "", false
	}
	return h.shown, h.panels[h.shown].String(), true
}

// PromptForLine records a pending prompt; the model opens its input field
// when it sees one. A second prompt replaces the first, which is dismissed.
func (h *host) PromptForLine(label, initial string, done func(line string, ok bool)) {
	if prev := h.prompt; prev != nil {
		h.prompt = nil
		prev.done("", false)
	}
	h.prompt = &pendingPrompt{label: label, initial: initial, done: done}
}

// answer resolves the pending prompt.
func (h *host) answer(line string, ok bool) {
	p := h.prompt
	if p == nil {
		return
	}
	h.prompt = nil
	p.done(line, ok)
}

// logEvent records a task lifecycle event.
func (h *host) logEvent(e event.Event) {
	var line string
	switch e.Kind {
	case event.KindTaskStarted:
		line = "running: " + e.Text
	case event.KindTaskFinished:
		line = "done: " + e.Text
	case event.KindTaskFailed:
		line = "failed: " + e.Text
	case event.KindTaskCancelled:
		line = "cancelled: " + e.Text
	default:
		return
	}
	h.lastKind = e.Kind
	h.log = append(h.log, line)
	if len(h.log) > maxLogLines {
		h.log = h.log[len(h.log)-maxLogLines:]
	}
}

func (h *host) lastLog() string {
	if len(h.log) == 0 {
		return ""
	}
	return h.log[len(h.log)-1]
}
