package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
	"github.com/alexander-akhmetov/shellfilter/internal/invoker"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// maxPanelLines bounds the error panel height, borders excluded.
const maxPanelLines = 8

func createRendererCmd(width int) tea.Cmd {
	return func() tea.Msg {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(width-6, 40)),
		)
		if err != nil {
			debug.Logf("[tui] failed to create glamour renderer: %v", err)
		}
		return rendererReadyMsg{renderer: renderer}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case wakeMsg:
		if m.disp != nil {
			m.disp.drain()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.doc = viewport.New(m.width, m.docHeight())
			m.ready = true
			cmds = append(cmds, createRendererCmd(m.width))
		}
		m.input.Width = max(m.width-len(invoker.PromptLabel)-1, 10)

	case rendererReadyMsg:
		m.renderer = msg.renderer
		m.help = renderHelp(m.renderer, m.keys)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKeyMsg(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.syncPrompt())
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.prompting {
		return m.handlePromptKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	text := []rune(m.buf.Text())
	m.message = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.reg.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Dismiss):
		if _, _, ok := m.h.visiblePanel(); ok {
			m.h.hidePanel()
		} else if m.mark >= 0 {
			m.mark = -1
			m.syncSelection()
		}

	case key.Matches(msg, m.keys.Left):
		m.moveTo(m.cursor - 1)
	case key.Matches(msg, m.keys.Right):
		m.moveTo(m.cursor + 1)
	case key.Matches(msg, m.keys.Up):
		m.moveTo(moveVertical(text, m.cursor, -1))
	case key.Matches(msg, m.keys.Down):
		m.moveTo(moveVertical(text, m.cursor, 1))

	case key.Matches(msg, m.keys.Mark):
		if m.mark < 0 {
			m.mark = m.cursor
		} else {
			m.mark = -1
		}
		m.syncSelection()

	case key.Matches(msg, m.keys.Filter):
		m.runAction(task.KindReplace, false)
	case key.Matches(msg, m.keys.FilterLines):
		m.runAction(task.KindReplace, true)
	case key.Matches(msg, m.keys.Insert):
		m.runAction(task.KindInsert, false)

	case key.Matches(msg, m.keys.Undo):
		if name, ok := m.buf.Undo(); ok {
			m.message = "undid " + name
		} else {
			m.message = "nothing to undo"
		}

	case key.Matches(msg, m.keys.Save):
		if err := m.save(); err != nil {
			m.message = err.Error()
		} else {
			m.message = "saved " + m.path
		}
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		m.h.answer(line, true)
		return m, nil
	case tea.KeyEsc, tea.KeyCtrlC:
		m.closePrompt()
		m.h.answer("", false)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// syncPrompt opens the input field when the host holds a pending prompt.
func (m *Model) syncPrompt() tea.Cmd {
	if m.prompting || m.h.prompt == nil {
		return nil
	}
	m.prompting = true
	m.input.Prompt = m.h.prompt.label
	m.input.SetValue(m.h.prompt.initial)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) moveTo(pos int) {
	m.cursor = min(max(pos, 0), m.buf.Size())
	m.syncSelection()
}

// syncSelection mirrors the cursor and mark into the view. Any change
// cancels a task started from this view.
func (m *Model) syncSelection() {
	sel, _ := m.selection()
	m.view.SetSelections(sel)
}

func (m *Model) runAction(kind task.Kind, fullLine bool) {
	if !m.inv.Enabled(m.view, kind) {
		m.message = kind.Label() + " is unavailable while another command runs"
		return
	}
	opts := task.Options{FullLine: fullLine || m.cfg.FullLine}
	switch m.inv.RunPrompted(m.view, kind, opts) {
	case invoker.Cancelled:
		m.message = "cancelled external command"
	case invoker.Ignored:
		m.message = kind.Label() + " ignored"
	}
}

func (m *Model) save() error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(m.path); err == nil {
		perm = info.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", m.path, err)
	}
	if err := os.WriteFile(m.path, []byte(m.buf.Text()), perm); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	m.savedDepth = m.buf.UndoDepth()
	return nil
}

// docHeight is the number of rows left for the document.
func (m Model) docHeight() int {
	h := m.height - 2 // header and footer
	if _, body, ok := m.h.visiblePanel(); ok {
		h -= min(strings.Count(body, "\n")+1, maxPanelLines) + 3
	}
	return max(h, 1)
}

// refresh clamps positions after edits and re-renders the document.
func (m *Model) refresh() {
	size := m.buf.Size()
	m.cursor = min(m.cursor, size)
	if m.mark > size {
		m.mark = size
	}
	if !m.ready {
		return
	}

	text := []rune(m.buf.Text())
	sel, selecting := m.selection()
	m.doc.Width = m.width
	m.doc.Height = m.docHeight()
	m.doc.SetContent(renderDocument(text, sel, selecting, m.cursor))

	line := lineOf(text, m.cursor)
	if line < m.doc.YOffset {
		m.doc.SetYOffset(line)
	} else if line >= m.doc.YOffset+m.doc.Height {
		m.doc.SetYOffset(line - m.doc.Height + 1)
	}
}
