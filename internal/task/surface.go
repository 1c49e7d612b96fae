package task

import (
	"context"
	"io"

	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
)

// Document is the part of a view a task reads regions from and writes
// results back to. Every call happens on the UI goroutine.
type Document interface {
	ID() string
	BufferID() string
	Selections() []document.Region
	FullLine(r document.Region) document.Region
	Substr(r document.Region) string
	Size() int
	Edit(name string, fn func(e *document.Editor) error) error
}

// Runner executes one command invocation. *process.Runner implements it.
type Runner interface {
	Run(ctx context.Context, commandLine, input string) (*process.Result, error)
}

// Dispatcher marshals a function onto the UI goroutine. Post returns false
// when the UI loop no longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

// Panels is the output panel surface used to report failures.
type Panels interface {
	// CreatePanel returns a writer for the named panel, replacing any
	// previous contents.
	CreatePanel(name string) io.Writer
	ShowPanel(name string)
}
