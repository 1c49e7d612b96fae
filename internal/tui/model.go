package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/invoker"
	"github.com/alexander-akhmetov/shellfilter/internal/progress"
	"github.com/alexander-akhmetov/shellfilter/internal/registry"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// Model is the bubbletea model for the editor.
type Model struct {
	cfg    *config.Config
	path   string
	branch string

	buf  *document.Buffer
	view *document.View
	reg  *registry.Registry
	inv  *invoker.Invoker
	h    *host
	disp *dispatcher
	keys keyMap

	cursor     int
	mark       int // selection anchor, -1 when not selecting
	savedDepth int

	doc       viewport.Model
	input     textinput.Model
	prompting bool

	width    int
	height   int
	ready    bool
	showHelp bool
	renderer *glamour.TermRenderer
	help     string
	message  string
}

// NewModel creates a model editing text, saved to path. Task completions and
// progress ticks go through d, which must deliver them to Update.
func NewModel(cfg *config.Config, path, text string, runner task.Runner, d *dispatcher) Model {
	bus := event.NewBus()
	buf := document.NewBuffer(text, bus)
	buf.SetPath(path)
	view := buf.NewView()
	h := newHost()

	reg := registry.New(registry.Config{
		Runner:     runner,
		Dispatcher: d,
		Panels:     h,
		PanelName:  cfg.PanelName,
		Status:     h,
		Progress: progress.Options{
			Key:      cfg.StatusKey,
			Width:    cfg.SpinnerWidth,
			Interval: cfg.TickInterval(),
		},
		OnEvent: h.logEvent,
	})
	reg.Watch(bus)

	input := textinput.New()
	input.Prompt = invoker.PromptLabel
	input.Placeholder = "shell command"

	return Model{
		cfg:   cfg,
		path:  path,
		buf:   buf,
		view:  view,
		reg:   reg,
		inv:   &invoker.Invoker{Registry: reg, Prompt: h},
		h:     h,
		disp:  d,
		keys:  defaultKeyMap(),
		mark:  -1,
		input: input,
	}
}

// rendererReadyMsg carries the glamour renderer for the help screen.
type rendererReadyMsg struct {
	renderer *glamour.TermRenderer
}

// selection returns the region between the mark and the cursor, and whether
// a selection is being made.
func (m Model) selection() (document.Region, bool) {
	if m.mark < 0 {
		return document.Point(m.cursor), false
	}
	return document.NewRegion(m.mark, m.cursor), true
}

func (m Model) modified() bool {
	return m.buf.UndoDepth() != m.savedDepth
}
