// Package progress renders a bouncing "[  =     ]" marker next to the command
// line of a running task. The indicator ticks on its own timer and stops,
// clearing the status, once the task is done or cancelled.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultKey is the status key the marker is rendered under.
	DefaultKey = "external_command"
	// DefaultWidth is the number of positions the marker bounces across.
	DefaultWidth = 8
	// DefaultInterval is the tick period.
	DefaultInterval = 100 * time.Millisecond
)

// Status is the transient, keyed status surface.
type Status interface {
	SetStatus(key, text string)
	EraseStatus(key string)
}

// Tracker is the view of a task the indicator polls.
type Tracker interface {
	CommandLine() string
	IsDone() bool
	Cancelled() bool
	Done() <-chan struct{}
}

// Dispatcher marshals work onto the UI goroutine.
type Dispatcher interface {
	Post(fn func()) bool
}

// Options tune the indicator. Zero values pick the defaults.
type Options struct {
	Key      string
	Width    int
	Interval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Width < 1 {
		o.Width = DefaultWidth
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Bouncer yields marker positions moving back and forth across size slots.
type Bouncer struct {
	size   int
	i      int
	addend int
}

// NewBouncer creates a bouncer starting at the left edge.
func NewBouncer(size int) *Bouncer {
	if size < 1 {
		size = 1
	}
	return &Bouncer{size: size, addend: 1}
}

// Next returns the padding before and after the marker and advances,
// reversing direction at either edge.
func (b *Bouncer) Next() (before, after int) {
	before = b.i % b.size
	after = (b.size - 1) - before
	if after == 0 {
		b.addend = -1
	}
	if before == 0 {
		b.addend = 1
	}
	if b.size > 1 {
		b.i += b.addend
	}
	return before, after
}

// Frame renders one status string.
func Frame(commandLine string, before, after int) string {
	return fmt.Sprintf("%s [%s=%s]", commandLine, strings.Repeat(" ", before), strings.Repeat(" ", after))
}

// Indicator is a running progress marker for one task.
type Indicator struct {
	opts     Options
	status   Status
	task     Tracker
	bouncer  *Bouncer
	finished atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
	doneOnce sync.Once
}

// Start renders the first frame and keeps ticking until t is done or
// cancelled. Status calls happen on the dispatcher's goroutine.
func Start(d Dispatcher, s Status, t Tracker, opts Options) *Indicator {
	opts = opts.withDefaults()
	in := &Indicator{
		opts:    opts,
		status:  s,
		task:    t,
		bouncer: NewBouncer(opts.Width),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go in.loop(d)
	return in
}

// Stop ends the indicator early and clears the status.
func (in *Indicator) Stop() {
	in.stopOnce.Do(func() { close(in.stop) })
}

// Stopped is closed once the status was cleared and no more ticks follow.
func (in *Indicator) Stopped() <-chan struct{} {
	return in.stopped
}

func (in *Indicator) loop(d Dispatcher) {
	ticker := time.NewTicker(in.opts.Interval)
	defer ticker.Stop()

	if !d.Post(in.tick) {
		in.markStopped()
		return
	}
	for {
		select {
		case <-ticker.C:
			if in.finished.Load() {
				return
			}
			if !d.Post(in.tick) {
				in.markStopped()
				return
			}
		case <-in.task.Done():
			if !d.Post(in.clear) {
				in.markStopped()
			}
			return
		case <-in.stop:
			if !d.Post(in.clear) {
				in.markStopped()
			}
			return
		}
	}
}

// tick runs on the UI goroutine.
func (in *Indicator) tick() {
	if in.finished.Load() {
		return
	}
	if in.task.IsDone() || in.task.Cancelled() {
		in.clear()
		return
	}
	before, after := in.bouncer.Next()
	in.status.SetStatus(in.opts.Key, Frame(in.task.CommandLine(), before, after))
}

// clear runs on the UI goroutine; only the first call erases the status.
func (in *Indicator) clear() {
	if in.finished.Swap(true) {
		return
	}
	in.status.EraseStatus(in.opts.Key)
	in.markStopped()
}

func (in *Indicator) markStopped() {
	in.finished.Store(true)
	in.doneOnce.Do(func() { close(in.stopped) })
}
