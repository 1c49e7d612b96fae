package document

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Region is a span of rune offsets [Begin, End) into a buffer's text.
// A zero-width region denotes an insertion point.
type Region struct {
	Begin int
	End   int
}

// NewRegion returns the region between a and b, ordered so Begin <= End.
func NewRegion(a, b int) Region {
	if a > b {
		a, b = b, a
	}
	return Region{Begin: a, End: b}
}

// Point returns the zero-width region at pos.
func Point(pos int) Region {
	return Region{Begin: pos, End: pos}
}

// Empty reports whether the region has zero width.
func (r Region) Empty() bool {
	return r.Begin == r.End
}

// Size returns the region width in runes.
func (r Region) Size() int {
	return r.End - r.Begin
}

// Shift returns the region moved by delta.
func (r Region) Shift(delta int) Region {
	return Region{Begin: r.Begin + delta, End: r.End + delta}
}

// Clamp limits the region to [0, size].
func (r Region) Clamp(size int) Region {
	return Region{Begin: clamp(r.Begin, 0, size), End: clamp(r.End, 0, size)}
}

func (r Region) String() string {
	return fmt.Sprintf("%d:%d", r.Begin, r.End)
}

// ParseRegion parses "BEGIN:END" or a single "POS" into a region.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	begin, end, found := strings.Cut(s, ":")
	a, err := strconv.Atoi(strings.TrimSpace(begin))
	if err != nil || a < 0 {
		return Region{}, fmt.Errorf("invalid region %q: bad begin offset", s)
	}
	if !found {
		return Point(a), nil
	}
	b, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil || b < 0 {
		return Region{}, fmt.Errorf("invalid region %q: bad end offset", s)
	}
	return NewRegion(a, b), nil
}

// Normalize returns regions sorted by position with overlapping regions
// merged. Cursors sharing a position are all kept, in their original order.
// A cursor strictly inside a selection is absorbed by it.
func Normalize(regions []Region) []Region {
	sorted := slices.Clone(regions)
	slices.SortStableFunc(sorted, func(a, b Region) int {
		return cmp.Or(cmp.Compare(a.Begin, b.Begin), cmp.Compare(a.End, b.End))
	})
	out := sorted[:0]
	for _, r := range sorted {
		if n := len(out); n > 0 && r.Begin < out[n-1].End {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
