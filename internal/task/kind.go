package task

import (
	"fmt"

	"github.com/alexander-akhmetov/shellfilter/internal/document"
)

// EditName names the undo group results are applied in.
const EditName = "run_external_command"

// Kind selects how a task collects its input and applies its output.
type Kind int

const (
	// KindReplace pipes the selected text through the command and replaces
	// each selection with the output.
	KindReplace Kind = iota
	// KindInsert runs the command with empty input and inserts the output
	// at every cursor.
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindReplace:
		return "replace"
	case KindInsert:
		return "insert"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label is the user-facing action name.
func (k Kind) Label() string {
	switch k {
	case KindInsert:
		return "Insert Command Output"
	default:
		return "Filter Through Command"
	}
}

// Options tune how regions are collected.
type Options struct {
	// FullLine extends replace regions to cover whole lines.
	FullLine bool
}

// regions captures the target regions from the document. It runs once, at
// start, on the UI goroutine.
func (k Kind) regions(doc Document, opts Options) []document.Region {
	sels := doc.Selections()
	switch k {
	case KindInsert:
		points := make([]document.Region, len(sels))
		for i, r := range sels {
			points[i] = document.Point(r.End)
		}
		return document.Normalize(points)
	default:
		var regions []document.Region
		for _, r := range sels {
			if !r.Empty() {
				regions = append(regions, r)
			}
		}
		if len(regions) == 0 {
			regions = []document.Region{{Begin: 0, End: doc.Size()}}
		}
		if opts.FullLine {
			for i, r := range regions {
				regions[i] = doc.FullLine(r)
			}
		}
		// Two selections on one line extend to the same full-line span.
		return document.Normalize(regions)
	}
}

// inputs returns the stdin text for each region.
func (k Kind) inputs(doc Document, regions []document.Region) []string {
	inputs := make([]string, len(regions))
	if k == KindInsert {
		return inputs
	}
	for i, r := range regions {
		inputs[i] = doc.Substr(r)
	}
	return inputs
}

// ApplyResults replaces each region with its result in one undo group.
// Regions must be in document order without overlaps; each is shifted by the
// length change of all earlier replacements.
func ApplyResults(doc Document, regions []document.Region, results []string) error {
	if len(regions) != len(results) {
		return fmt.Errorf("apply results: %d regions, %d results", len(regions), len(results))
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].Begin < regions[i-1].End {
			return fmt.Errorf("apply results: region %s overlaps or precedes %s", regions[i], regions[i-1])
		}
	}
	return doc.Edit(EditName, func(e *document.Editor) error {
		delta := 0
		for i, r := range regions {
			target := r.Shift(delta)
			n, err := e.Replace(target, results[i])
			if err != nil {
				return err
			}
			delta += n - target.Size()
		}
		return nil
	})
}
