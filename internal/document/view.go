package document

import (
	"sync"

	"github.com/google/uuid"

	"github.com/alexander-akhmetov/shellfilter/internal/event"
)

// View is one window onto a buffer. Selections live on the view.
type View struct {
	mu         sync.RWMutex
	id         string
	buf        *Buffer
	selections []Region
	closed     bool
}

// NewView opens a view on b with a single cursor at offset 0.
func (b *Buffer) NewView() *View {
	return &View{
		id:         uuid.NewString(),
		buf:        b,
		selections: []Region{Point(0)},
	}
}

// ID returns the view identity.
func (v *View) ID() string { return v.id }

// Buffer returns the underlying buffer.
func (v *View) Buffer() *Buffer { return v.buf }

// BufferID returns the identity of the underlying buffer.
func (v *View) BufferID() string { return v.buf.ID() }

// ReadOnly reports whether the underlying buffer rejects edits.
func (v *View) ReadOnly() bool { return v.buf.ReadOnly() }

// Size returns the buffer length in runes.
func (v *View) Size() int { return v.buf.Size() }

// Substr returns the text covered by r.
func (v *View) Substr(r Region) string { return v.buf.Substr(r) }

// FullLine extends r to whole lines.
func (v *View) FullLine(r Region) Region { return v.buf.FullLine(r) }

// Edit runs an undoable transaction on the buffer on behalf of this view.
func (v *View) Edit(name string, fn func(e *Editor) error) error {
	return v.buf.Edit(name, v.id, fn)
}

// Selections returns a copy of the current selections, clamped to the
// buffer size, in document order.
func (v *View) Selections() []Region {
	size := v.buf.Size()
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Region, len(v.selections))
	for i, r := range v.selections {
		out[i] = r.Clamp(size)
	}
	return out
}

// SetSelections replaces the selections and publishes a selection change.
// The regions are stored normalized: sorted, with overlaps merged.
func (v *View) SetSelections(regions ...Region) {
	v.mu.Lock()
	v.selections = Normalize(regions)
	v.mu.Unlock()
	v.buf.bus.Publish(event.SelectionChanged(v.buf.id, v.id))
}

// Close marks the view closed and publishes the notification. Closing twice
// is a no-op.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()
	v.buf.bus.Publish(event.Closed(v.buf.id, v.id))
}

// Closed reports whether Close was called.
func (v *View) Closed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}
