// Package headless implements the status, panel and prompt surfaces for
// terminal use without a full-screen UI. The status line is redrawn in place
// on a TTY and suppressed otherwise; panels are kept in memory and printed
// when shown.
package headless

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/alexander-akhmetov/shellfilter/internal/event"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// Surface is the headless host. All methods except the prompt's reader
// goroutine are meant to run on the UI goroutine, but are safe from any.
type Surface struct {
	d     task.Dispatcher
	in    *bufio.Reader
	out   io.Writer
	isTTY bool

	mu         sync.Mutex
	status     map[string]string
	statusLine bool
	panels     map[string]*bytes.Buffer
	shown      []string
}

// New creates a surface. in feeds the prompt; out receives the status line,
// shown panels and lifecycle events.
func New(d task.Dispatcher, in io.Reader, out io.Writer, isTTY bool) *Surface {
	s := &Surface{
		d:      d,
		out:    out,
		isTTY:  isTTY,
		status: make(map[string]string),
		panels: make(map[string]*bytes.Buffer),
	}
	if in != nil {
		s.in = bufio.NewReader(in)
	}
	return s
}

// SetStatus sets the transient status for key and redraws the status line.
func (s *Surface) SetStatus(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[key] = text
	if s.isTTY {
		fmt.Fprint(s.out, clearLine+fg(colorDim, text))
		s.statusLine = true
	}
}

// EraseStatus clears the status for key. Erasing an unknown key is a no-op.
func (s *Surface) EraseStatus(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[key]; !ok {
		return
	}
	delete(s.status, key)
	s.eraseStatusLine()
}

// Status returns the current status text for key.
func (s *Surface) Status(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.status[key]
	return text, ok
}

func (s *Surface) eraseStatusLine() {
	if s.statusLine {
		fmt.Fprint(s.out, clearLine)
		s.statusLine = false
	}
}

// CreatePanel returns a sink for the panel called name, discarding whatever
// the panel held before.
func (s *Surface) CreatePanel(name string) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[name] = &bytes.Buffer{}
	return &panelWriter{s: s, name: name}
}

// ShowPanel prints the panel contents to the output.
func (s *Surface) ShowPanel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.panels[name]
	if !ok {
		return
	}
	s.shown = append(s.shown, name)
	s.eraseStatusLine()

	header := "--- " + name + " ---"
	if s.isTTY {
		header = fg(colorRed, bold(header))
	}
	fmt.Fprintln(s.out, header)
	body := buf.String()
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	fmt.Fprint(s.out, body)
}

// Panel returns the contents of a panel.
func (s *Surface) Panel(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.panels[name]
	if !ok {
		return "", false
	}
	return buf.String(), true
}

// Shown returns the names of shown panels, in showing order.
func (s *Surface) Shown() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shown...)
}

type panelWriter struct {
	s    *Surface
	name string
}

func (w *panelWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	buf, ok := w.s.panels[w.name]
	if !ok {
		return 0, fmt.Errorf("panel %s was removed", w.name)
	}
	return buf.Write(p)
}

// PromptForLine prints label and reads one line off the UI goroutine. done
// runs on the dispatcher with the line, or with ok=false on end of input.
// The initial text is only displayed; a terminal line reader cannot pre-fill.
func (s *Surface) PromptForLine(label, initial string, done func(line string, ok bool)) {
	s.mu.Lock()
	s.eraseStatusLine()
	prompt := label
	if initial != "" {
		prompt += "[" + initial + "] "
	}
	fmt.Fprint(s.out, prompt)
	s.mu.Unlock()

	if s.in == nil {
		s.answer(done, "", false)
		return
	}
	go func() {
		line, err := s.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if !errors.Is(err, io.EOF) {
				log.Printf("[headless] read prompt: %v", err)
			}
			s.answer(done, "", false)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" && initial != "" {
			line = initial
		}
		s.answer(done, line, true)
	}()
}

func (s *Surface) answer(done func(string, bool), line string, ok bool) {
	if !s.d.Post(func() { done(line, ok) }) {
		log.Printf("[headless] prompt answer dropped: UI loop stopped")
	}
}

// WriteEvent prints a task lifecycle event.
func (s *Surface) WriteEvent(e event.Event) {
	var tag string
	color := colorCyan
	switch e.Kind {
	case event.KindTaskStarted:
		tag = "running"
	case event.KindTaskFinished:
		tag, color = "done", colorGreen
	case event.KindTaskFailed:
		tag, color = "failed", colorRed
	case event.KindTaskCancelled:
		tag, color = "cancelled", colorDim
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseStatusLine()
	if s.isTTY {
		tag = fg(color, tag)
	}
	fmt.Fprintf(s.out, "%s %s\n", tag, e.Text)
}
