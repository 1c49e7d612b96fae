package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexander-akhmetov/shellfilter/internal/config"
	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
	"github.com/alexander-akhmetov/shellfilter/internal/registry"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

type funcRunner func(ctx context.Context, commandLine, input string) (*process.Result, error)

func (f funcRunner) Run(ctx context.Context, commandLine, input string) (*process.Result, error) {
	return f(ctx, commandLine, input)
}

var upper = funcRunner(func(_ context.Context, _ string, input string) (*process.Result, error) {
	return process.NewResult(strings.ToUpper(input), "", 0), nil
})

// held blocks until the context is cancelled.
var held = funcRunner(func(ctx context.Context, _ string, _ string) (*process.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
})

func testConfig() *config.Config {
	return &config.Config{
		Shell:          "/bin/sh",
		ShellFlag:      "-c",
		SpinnerWidth:   8,
		TickIntervalMS: 20,
		StatusKey:      "external_command",
		PanelName:      "external_command_errors",
		Workdir:        config.WorkdirCwd,
	}
}

func newTestModel(t *testing.T, text string, runner task.Runner) Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	m := NewModel(testConfig(), path, text, runner, newDispatcher())
	t.Cleanup(func() {
		m.reg.Close()
		m.disp.close()
	})
	return m
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func keys(m Model, ks ...string) Model {
	for _, k := range ks {
		m = send(m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// settle pumps the dispatcher until the buffer has no live task and the
// progress indicator has been erased.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	require.Eventually(t, func() bool {
		m = send(m, wakeMsg{})
		return m.reg.TaskFor(m.buf.ID()) == nil && m.h.statusLine() == ""
	}, 5*time.Second, 5*time.Millisecond)
	return m
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, "hello", upper)

	assert.Equal(t, "hello", m.buf.Text())
	assert.Equal(t, -1, m.mark)
	assert.False(t, m.modified())
	assert.False(t, m.prompting)
	assert.NotNil(t, m.Init())
}

func TestModelUpdateWindowSizeMsg(t *testing.T) {
	m := newTestModel(t, "hello", upper)

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	assert.Equal(t, 100, m.width)
	assert.Equal(t, 30, m.height)
	assert.True(t, m.ready)
	assert.NotNil(t, cmd, "first size message should build the help renderer")
	assert.Equal(t, 28, m.doc.Height)
	assert.Contains(t, m.View(), "doc.txt")
}

func TestPromptedFilterReplacesDocument(t *testing.T) {
	m := newTestModel(t, "hello world", upper)

	m = keys(m, "|")
	require.True(t, m.prompting)

	m = keys(m, "tr a-z A-Z", "enter")
	assert.False(t, m.prompting)
	tk := m.reg.TaskFor(m.buf.ID())
	require.NotNil(t, tk)
	assert.Equal(t, "tr a-z A-Z", tk.CommandLine())

	m = settle(t, m)
	assert.Equal(t, "HELLO WORLD", m.buf.Text())
	assert.Equal(t, task.StateSucceeded, tk.State())
	assert.Equal(t, "done: tr a-z A-Z", m.h.lastLog())
	assert.Empty(t, m.h.statusLine())
	assert.True(t, m.modified())
}

func TestFilterSelection(t *testing.T) {
	m := newTestModel(t, "abc def", upper)

	// Select "def" with the mark, then filter it.
	m = keys(m, "l", "l", "l", "l", "v", "l", "l", "l")
	sel, ok := m.selection()
	require.True(t, ok)
	assert.Equal(t, 4, sel.Begin)
	assert.Equal(t, 7, sel.End)

	m = keys(m, "|", "upper", "enter")
	m = settle(t, m)
	assert.Equal(t, "abc DEF", m.buf.Text())
}

func TestPromptDismissStartsNothing(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{name: "esc", keys: []string{"|", "esc"}},
		{name: "ctrl+c", keys: []string{"|", "ctrl+c"}},
		{name: "empty answer", keys: []string{"!", "enter"}},
		{name: "blank answer", keys: []string{"!", "   ", "enter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, "text", upper)
			m = keys(m, tt.keys...)

			assert.False(t, m.prompting)
			assert.Nil(t, m.h.prompt)
			assert.Zero(t, m.reg.Len())
			assert.Equal(t, "text", m.buf.Text())
		})
	}
}

func TestSecondPressCancels(t *testing.T) {
	m := newTestModel(t, "text", held)

	m = keys(m, "|", "sleep 100", "enter")
	tk := m.reg.TaskFor(m.buf.ID())
	require.NotNil(t, tk)

	m = keys(m, "|")
	assert.False(t, m.prompting)
	assert.True(t, tk.Cancelled())
	assert.Equal(t, "cancelled external command", m.message)

	m = settle(t, m)
	assert.Equal(t, task.StateCancelled, tk.State())
	assert.Equal(t, "text", m.buf.Text())
	assert.Equal(t, "cancelled: sleep 100", m.h.lastLog())
}

func TestOtherKindDisabledWhileRunning(t *testing.T) {
	m := newTestModel(t, "text", held)

	m = keys(m, "|", "sleep 100", "enter")
	tk := m.reg.TaskFor(m.buf.ID())
	require.NotNil(t, tk)

	m = keys(m, "!")
	assert.False(t, m.prompting)
	assert.Contains(t, m.message, "unavailable")
	assert.False(t, tk.Cancelled())
	assert.False(t, m.inv.Enabled(m.view, task.KindInsert))
	assert.Equal(t, "Cancel External Command", m.inv.Description(m.view, task.KindReplace))
}

func TestCursorMoveCancelsTask(t *testing.T) {
	m := newTestModel(t, "text", held)

	m = keys(m, "|", "sleep 100", "enter")
	tk := m.reg.TaskFor(m.buf.ID())
	require.NotNil(t, tk)

	m = keys(m, "l")
	assert.True(t, tk.Cancelled())
	settle(t, m)
	assert.Equal(t, task.StateCancelled, tk.State())
}

func TestFailureShowsPanel(t *testing.T) {
	failing := funcRunner(func(_ context.Context, _ string, _ string) (*process.Result, error) {
		return process.NewResult("", "boom", 2), nil
	})
	m := newTestModel(t, "text", failing)
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = keys(m, "|", "false", "enter")
	m = settle(t, m)

	name, body, ok := m.h.visiblePanel()
	require.True(t, ok)
	assert.Equal(t, "external_command_errors", name)
	assert.Contains(t, body, "Shell returned 2")
	assert.Contains(t, body, "boom")
	assert.Equal(t, event.KindTaskFailed, m.h.lastKind)
	assert.Less(t, m.doc.Height, 22)
	assert.Contains(t, m.View(), "external_command_errors")

	m = keys(m, "esc")
	_, _, ok = m.h.visiblePanel()
	assert.False(t, ok)
	assert.Equal(t, 22, m.doc.Height)
}

func TestInsertAtCursor(t *testing.T) {
	m := newTestModel(t, "ab", funcRunner(func(_ context.Context, _ string, input string) (*process.Result, error) {
		return process.NewResult("[in="+input+"]", "", 0), nil
	}))

	m = keys(m, "l", "!", "echo", "enter")
	m = settle(t, m)
	assert.Equal(t, "a[in=]b", m.buf.Text())
}

func TestUndoAndSave(t *testing.T) {
	m := newTestModel(t, "hello", upper)

	m = keys(m, "u")
	assert.Equal(t, "nothing to undo", m.message)

	m = keys(m, "|", "upper", "enter")
	m = settle(t, m)
	require.Equal(t, "HELLO", m.buf.Text())

	m = keys(m, "ctrl+s")
	assert.Equal(t, "saved "+m.path, m.message)
	assert.False(t, m.modified())
	data, err := os.ReadFile(m.path)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(data))

	m = keys(m, "u")
	assert.Equal(t, "hello", m.buf.Text())
	assert.True(t, strings.HasPrefix(m.message, "undid "))
	assert.True(t, m.modified())
}

func TestSaveKeepsPermissions(t *testing.T) {
	m := newTestModel(t, "x", upper)
	require.NoError(t, os.WriteFile(m.path, []byte("old"), 0o600))

	m = keys(m, "ctrl+s")

	info, err := os.Stat(m.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestQuitClosesRegistry(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newTestModel(t, "text", held)
			m = keys(m, "|", "sleep 100", "enter")
			tk := m.reg.TaskFor(m.buf.ID())
			require.NotNil(t, tk)

			next, cmd := m.Update(keyMsg(k))
			m = next.(Model)
			require.NotNil(t, cmd)
			assert.True(t, tk.Cancelled())

			_, err := m.reg.Start(m.view, "cat", task.KindReplace, task.Options{})
			assert.ErrorIs(t, err, registry.ErrClosed)
			settle(t, m)
		})
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, "text", upper)
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = keys(m, "?")
	require.True(t, m.showHelp)
	assert.Contains(t, m.View(), "press any key to return")

	m = keys(m, "j")
	assert.False(t, m.showHelp)
	assert.Equal(t, 0, m.cursor, "the key closing help is not a movement")
}

func TestHelpMarkdownEscapesPipe(t *testing.T) {
	md := helpMarkdown(defaultKeyMap())
	assert.Contains(t, md, "| `\\|` |")
	assert.Contains(t, md, "ctrl+s")
	assert.Equal(t, md, renderHelp(nil, defaultKeyMap()))
}

func TestDispatcher(t *testing.T) {
	d := newDispatcher()
	var woken int
	d.setSend(func(msg tea.Msg) {
		if _, ok := msg.(wakeMsg); ok {
			woken++
		}
	})

	var got []int
	require.True(t, d.Post(func() { got = append(got, 1) }))
	require.True(t, d.Post(func() { got = append(got, 2) }))
	assert.Equal(t, 2, woken)
	assert.Empty(t, got)

	d.drain()
	assert.Equal(t, []int{1, 2}, got)

	require.True(t, d.Post(func() { got = append(got, 3) }))
	d.close()
	assert.Equal(t, []int{1, 2, 3}, got, "close runs what is still queued")
	assert.False(t, d.Post(func() { got = append(got, 4) }))
	d.drain()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestHost(t *testing.T) {
	h := newHost()

	h.SetStatus("b", "second")
	h.SetStatus("a", "first")
	h.SetStatus("b", "second again")
	assert.Equal(t, "second again  first", h.statusLine())
	h.EraseStatus("b")
	h.EraseStatus("missing")
	assert.Equal(t, "first", h.statusLine())

	h.ShowPanel("nope")
	_, _, ok := h.visiblePanel()
	assert.False(t, ok)

	w := h.CreatePanel("errs")
	_, _ = w.Write([]byte("one"))
	h.ShowPanel("errs")
	_ = h.CreatePanel("errs")
	_, body, ok := h.visiblePanel()
	require.True(t, ok)
	assert.Empty(t, body, "recreating a panel replaces its contents")

	var answers []string
	h.PromptForLine("Command: ", "", func(line string, ok bool) {
		answers = append(answers, "first:"+line)
		assert.False(t, ok)
	})
	h.PromptForLine("Command: ", "ls", func(line string, ok bool) {
		answers = append(answers, "second:"+line)
		assert.True(t, ok)
	})
	h.answer("pwd", true)
	h.answer("ignored", true)
	assert.Equal(t, []string{"first:", "second:pwd"}, answers)
}

func TestHostLogEvent(t *testing.T) {
	h := newHost()
	h.logEvent(event.Modified("b", "v"))
	assert.Empty(t, h.lastLog())

	h.logEvent(event.TaskStarted("b", "sort"))
	assert.Equal(t, "running: sort", h.lastLog())
	h.logEvent(event.TaskFailed("b", "sort"))
	assert.Equal(t, "failed: sort", h.lastLog())
	assert.Equal(t, event.KindTaskFailed, h.lastKind)

	for range maxLogLines + 10 {
		h.logEvent(event.TaskFinished("b", "x"))
	}
	assert.Len(t, h.log, maxLogLines)
}

func TestTextHelpers(t *testing.T) {
	text := []rune("ab\ncdef\n\ng")

	tests := []struct {
		name  string
		pos   int
		delta int
		want  int
	}{
		{name: "down keeps column", pos: 1, delta: 1, want: 4},
		{name: "down clamps to short line", pos: 6, delta: 1, want: 8},
		{name: "up from first line stays", pos: 1, delta: -1, want: 1},
		{name: "down from last line stays", pos: 9, delta: 1, want: 9},
		{name: "up clamps column", pos: 6, delta: -1, want: 2},
		{name: "two lines down", pos: 0, delta: 3, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, moveVertical(text, tt.pos, tt.delta))
		})
	}

	start, end := lineBounds(text, 5)
	assert.Equal(t, 3, start)
	assert.Equal(t, 7, end)
	start, end = lineBounds(text, 8)
	assert.Equal(t, 8, start)
	assert.Equal(t, 8, end)

	assert.Equal(t, 0, lineOf(text, 2))
	assert.Equal(t, 1, lineOf(text, 3))
	assert.Equal(t, 3, lineOf(text, 10))
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	text, err := readDocument(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Empty(t, text)

	bad := filepath.Join(dir, "bad.bin")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe}, 0o644))
	_, err = readDocument(bad)
	assert.Error(t, err)

	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("héllo"), 0o644))
	text, err = readDocument(good)
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
}
