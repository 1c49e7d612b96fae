// Package uiloop provides the single "UI goroutine" for hosts without their
// own event loop. Closures posted from any goroutine run one at a time, in
// posting order, on the goroutine that calls Run.
package uiloop

import (
	"context"
	"log"
	"sync"
)

// Loop is an unbounded FIFO of closures drained by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	stopCh  chan struct{}
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and reports false once the loop is
// stopped, in which case fn will never run.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains the queue until ctx is done or Stop is called. Closures that
// were accepted before the stop still run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-l.wake:
		case <-l.stopCh:
			l.drain()
			return nil
		case <-ctx.Done():
			l.Stop()
			l.drain()
			return ctx.Err()
		}
	}
}

// Stop makes further Post calls fail and lets Run return. Safe to call more
// than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.stopCh)
}

// Stopped reports whether Stop was called.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.call(fn)
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[uiloop] posted func panicked: %v", r)
		}
	}()
	fn()
}
