package process

import (
	"fmt"
	"strings"
)

// Result holds the outcome of one command invocation. Line endings of both
// streams are normalized to "\n".
type Result struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// NewResult builds a Result from decoded stream text.
func NewResult(stdout, stderr string, returnCode int) *Result {
	return &Result{
		Stdout:     normalizeNewlines(stdout),
		Stderr:     normalizeNewlines(stderr),
		ReturnCode: returnCode,
	}
}

// Output returns the text written back to the document.
func (r *Result) Output() string {
	return r.Stdout
}

// Failed reports a non-zero exit status.
func (r *Result) Failed() bool {
	return r.ReturnCode != 0
}

// ErrorMessage describes a failed invocation for the error panel.
func (r *Result) ErrorMessage() string {
	if r.Stderr == "" {
		return fmt.Sprintf("Shell returned %d", r.ReturnCode)
	}
	return fmt.Sprintf("Shell returned %d:\n%s", r.ReturnCode, r.Stderr)
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
