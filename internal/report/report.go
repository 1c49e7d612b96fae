// Package report renders the outcome of a finished task for the CLI: a
// unified diff of the document and a machine-readable JSON summary.
package report

import (
	"fmt"

	"github.com/aymanbagabas/go-udiff"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/alexander-akhmetov/shellfilter/internal/document"
	"github.com/alexander-akhmetov/shellfilter/internal/process"
	"github.com/alexander-akhmetov/shellfilter/internal/task"
)

// Report is the outcome of one task against one file.
type Report struct {
	File     string
	Kind     string
	Command  string
	State    string
	Regions  []document.Region
	Results  []*process.Result
	Failures []string
	Changed  bool
}

// FromTask collects a report from a finished task. before and after are the
// document text around the run.
func FromTask(file string, t *task.Task, before, after string) Report {
	return Report{
		File:     file,
		Kind:     t.Kind().String(),
		Command:  t.CommandLine(),
		State:    t.State().String(),
		Regions:  t.Regions(),
		Results:  t.Results(),
		Failures: t.Failures(),
		Changed:  before != after,
	}
}

// Diff returns a unified diff between before and after, labelled with path.
// It is empty when nothing changed.
func Diff(path, before, after string) string {
	if before == after {
		return ""
	}
	return udiff.Unified("a/"+path, "b/"+path, before, after)
}

// JSON encodes the report. Output is indented, and colorized when color is
// set.
func (r Report) JSON(color bool) ([]byte, error) {
	js := "{}"
	var err error
	set := func(path string, v any) {
		if err != nil {
			return
		}
		js, err = sjson.Set(js, path, v)
	}

	set("file", r.File)
	set("kind", r.Kind)
	set("command", r.Command)
	set("state", r.State)
	set("changed", r.Changed)
	set("regions", []any{})
	for i, reg := range r.Regions {
		p := fmt.Sprintf("regions.%d", i)
		set(p+".begin", reg.Begin)
		set(p+".end", reg.End)
		if i < len(r.Results) && r.Results[i] != nil {
			set(p+".returncode", r.Results[i].ReturnCode)
			set(p+".output_len", len([]rune(r.Results[i].Output())))
			if r.Results[i].Stderr != "" {
				set(p+".stderr", r.Results[i].Stderr)
			}
		}
	}
	set("failures", []any{})
	for _, f := range r.Failures {
		set("failures.-1", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	out := pretty.Pretty([]byte(js))
	if color {
		out = pretty.Color(out, nil)
	}
	return out, nil
}

// Summary renders a one-line description of an encoded report.
func Summary(js []byte) string {
	if !gjson.ValidBytes(js) {
		return "invalid report"
	}
	res := gjson.ParseBytes(js)
	s := fmt.Sprintf("%s %q: %s, %d region(s)",
		res.Get("kind").String(),
		res.Get("command").String(),
		res.Get("state").String(),
		res.Get("regions.#").Int(),
	)
	if n := res.Get("failures.#").Int(); n > 0 {
		s += fmt.Sprintf(", %d failure(s)", n)
	}
	if !res.Get("changed").Bool() {
		s += ", unchanged"
	}
	return s
}

// Failed reports whether an encoded report describes a failed task.
func Failed(js []byte) bool {
	return gjson.GetBytes(js, "state").String() == task.StateFailed.String()
}
