package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

type runeClass int

const (
	classPlain runeClass = iota
	classSelected
	classCursor
)

// renderDocument styles text with the selection and cursor applied. The
// cursor is drawn as a reversed space when it sits on a newline or at the end.
func renderDocument(text []rune, sel document.Region, selecting bool, cursor int) string {
	var b strings.Builder
	var run []rune
	cur := classPlain

	flush := func() {
		if len(run) == 0 {
			return
		}
		s := string(run)
		switch cur {
		case classSelected:
			b.WriteString(selectionStyle.Render(s))
		case classCursor:
			b.WriteString(cursorStyle.Render(s))
		default:
			b.WriteString(s)
		}
		run = run[:0]
	}
	put := func(c runeClass, r rune) {
		if c != cur {
			flush()
			cur = c
		}
		run = append(run, r)
	}

	for i, r := range text {
		c := classPlain
		switch {
		case i == cursor:
			c = classCursor
		case selecting && i >= sel.Begin && i < sel.End:
			c = classSelected
		}
		if r == '\n' {
			if c != classPlain {
				put(c, ' ')
			}
			flush()
			b.WriteByte('\n')
			cur = classPlain
			continue
		}
		put(c, r)
	}
	if cursor >= len(text) {
		put(classCursor, ' ')
	}
	flush()
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.showHelp {
		return m.renderHelpScreen()
	}

	sections := []string{m.renderHeader(), m.doc.View()}
	if panel := m.renderPanel(); panel != "" {
		sections = append(sections, panel)
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	name := m.path
	if name == "" {
		name = "[scratch]"
	} else {
		name = filepath.Base(name)
	}
	parts := []string{titleStyle.Render("shellfilter"), valueStyle.Render(name)}
	if m.branch != "" {
		parts = append(parts, labelStyle.Render("on ")+valueStyle.Render(m.branch))
	}
	if m.modified() {
		parts = append(parts, modifiedStyle.Render("[+]"))
	}
	if sel, ok := m.selection(); ok {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("sel %s", sel)))
	} else {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("@%d", m.cursor)))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderPanel() string {
	name, body, ok := m.h.visiblePanel()
	if !ok {
		return ""
	}
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) > maxPanelLines {
		lines = append(lines[:maxPanelLines-1], fmt.Sprintf("... %d more lines", len(lines)-maxPanelLines+1))
	}
	content := panelTitleStyle.Render(name) + "\n" + strings.Join(lines, "\n")
	return panelStyle.Width(max(m.width-2, 10)).Render(content)
}

func (m Model) renderFooter() string {
	if m.prompting {
		return m.input.View()
	}

	var left string
	switch {
	case m.h.statusLine() != "":
		left = statusStyle.Render(m.h.statusLine())
	case m.message != "":
		left = messageStyle.Render(m.message)
	case m.h.lastLog() != "":
		if m.h.lastKind == event.KindTaskFailed {
			left = failedStyle.Render(m.h.lastLog())
		} else {
			left = labelStyle.Render(m.h.lastLog())
		}
	}

	hints := make([]string, 0, 3)
	for _, a := range []struct {
		key  string
		kind task.Kind
	}{{"|", task.KindReplace}, {"!", task.KindInsert}} {
		desc := a.key + " " + m.inv.Description(m.view, a.kind)
		if m.inv.Enabled(m.view, a.kind) {
			hints = append(hints, helpStyle.Render(desc))
		} else {
			hints = append(hints, disabledStyle.Render(desc))
		}
	}
	hints = append(hints, helpStyle.Render("? help"))
	right := strings.Join(hints, helpStyle.Render(" • "))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderHelpScreen() string {
	help := m.help
	if help == "" {
		help = renderHelp(nil, m.keys)
	}
	return help + "\n" + helpStyle.Render("press any key to return")
}
