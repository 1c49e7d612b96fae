// Package document provides the editable text surface that external command
// tasks read from and write back to. A Buffer owns text, identity and undo
// history; a View owns selections. Several views may share one buffer.
//
// Offsets are rune offsets. Buffers are safe for concurrent use, but the
// external command machinery only mutates them from the UI goroutine.
package document

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/alexander-akhmetov/shellfilter/internal/event"
)

// ErrReadOnly is returned when editing a read-only buffer.
var ErrReadOnly = errors.New("buffer is read-only")

// operation is one primitive change recorded for undo.
type operation struct {
	pos      int
	removed  []rune
	inserted []rune
}

// editGroup is an undo unit: all operations of one Edit call.
type editGroup struct {
	name string
	ops  []operation
}

// Buffer holds the text of a document.
type Buffer struct {
	mu       sync.RWMutex
	id       string
	path     string
	text     []rune
	readOnly bool
	history  []editGroup
	bus      *event.Bus
}

// NewBuffer creates a buffer holding text. Change notifications are published
// on bus, which may be nil.
func NewBuffer(text string, bus *event.Bus) *Buffer {
	return &Buffer{
		id:   uuid.NewString(),
		text: []rune(text),
		bus:  bus,
	}
}

// ID returns the stable buffer identity.
func (b *Buffer) ID() string { return b.id }

// Path returns the file the buffer was loaded from, if any.
func (b *Buffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// SetPath records the file backing the buffer.
func (b *Buffer) SetPath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = path
}

// ReadOnly reports whether edits are rejected.
func (b *Buffer) ReadOnly() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readOnly
}

// SetReadOnly toggles the read-only flag.
func (b *Buffer) SetReadOnly(ro bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = ro
}

// Size returns the text length in runes.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

// Text returns the whole text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

// Substr returns the text covered by r, clamped to the buffer.
func (b *Buffer) Substr(r Region) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r = r.Clamp(len(b.text))
	return string(b.text[r.Begin:r.End])
}

// FullLine extends r to cover the complete lines it touches, including the
// trailing newline of the last line. A non-empty region ending right after a
// newline does not pull in the following line.
func (b *Buffer) FullLine(r Region) Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r = r.Clamp(len(b.text))

	begin := r.Begin
	for begin > 0 && b.text[begin-1] != '\n' {
		begin--
	}

	end := r.End
	if !r.Empty() && end > 0 && b.text[end-1] == '\n' {
		return Region{Begin: begin, End: end}
	}
	for end < len(b.text) && b.text[end] != '\n' {
		end++
	}
	if end < len(b.text) {
		end++
	}
	return Region{Begin: begin, End: end}
}

// Editor applies changes inside an Edit transaction.
type Editor struct {
	buf   *Buffer
	group *editGroup
}

// Size returns the current text length, including changes made so far in
// the transaction.
func (e *Editor) Size() int {
	return len(e.buf.text)
}

// Replace overwrites r with text and returns the inserted length in runes.
func (e *Editor) Replace(r Region, text string) (int, error) {
	r = NewRegion(r.Begin, r.End)
	if r.Begin < 0 || r.End > len(e.buf.text) {
		return 0, fmt.Errorf("region %s out of range [0, %d]", r, len(e.buf.text))
	}
	inserted := []rune(text)
	removed := make([]rune, r.Size())
	copy(removed, e.buf.text[r.Begin:r.End])

	e.buf.splice(r.Begin, r.Size(), inserted)
	e.group.ops = append(e.group.ops, operation{pos: r.Begin, removed: removed, inserted: inserted})
	return len(inserted), nil
}

// Insert adds text at pos and returns the inserted length in runes.
func (e *Editor) Insert(pos int, text string) (int, error) {
	return e.Replace(Point(pos), text)
}

// Erase removes the text covered by r.
func (e *Editor) Erase(r Region) error {
	_, err := e.Replace(r, "")
	return err
}

// Edit runs fn as one undoable transaction called name. The view identity
// is attached to the resulting modified notification. If fn fails, changes
// made so far are rolled back.
func (b *Buffer) Edit(name, viewID string, fn func(e *Editor) error) error {
	b.mu.Lock()
	if b.readOnly {
		b.mu.Unlock()
		return ErrReadOnly
	}
	group := &editGroup{name: name}
	err := fn(&Editor{buf: b, group: group})
	if err != nil {
		b.revert(group.ops)
		b.mu.Unlock()
		return fmt.Errorf("edit %s: %w", name, err)
	}
	changed := len(group.ops) > 0
	if changed {
		b.history = append(b.history, *group)
	}
	b.mu.Unlock()

	if changed {
		b.bus.Publish(event.Modified(b.id, viewID))
	}
	return nil
}

// Undo reverts the most recent edit transaction and returns its name.
func (b *Buffer) Undo() (string, bool) {
	b.mu.Lock()
	if len(b.history) == 0 || b.readOnly {
		b.mu.Unlock()
		return "", false
	}
	group := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.revert(group.ops)
	b.mu.Unlock()

	b.bus.Publish(event.Modified(b.id, ""))
	return group.name, true
}

// UndoDepth returns the number of transactions that can be undone.
func (b *Buffer) UndoDepth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.history)
}

func (b *Buffer) revert(ops []operation) {
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		b.splice(op.pos, len(op.inserted), op.removed)
	}
}

// splice replaces n runes at pos with ins. Caller holds mu.
func (b *Buffer) splice(pos, n int, ins []rune) {
	tail := append([]rune(nil), b.text[pos+n:]...)
	b.text = append(append(b.text[:pos], ins...), tail...)
}
