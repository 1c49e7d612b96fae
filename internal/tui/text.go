package tui

// lineBounds returns the offsets of the first rune of the line holding pos
// and of its terminating newline (or the end of text).
func lineBounds(text []rune, pos int) (start, end int) {
	pos = min(max(pos, 0), len(text))
	start = pos
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end = pos
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return start, end
}

// moveVertical moves pos by delta lines, keeping the column where the
// target line is long enough.
func moveVertical(text []rune, pos, delta int) int {
	start, end := lineBounds(text, pos)
	col := pos - start
	for ; delta > 0; delta-- {
		if end >= len(text) {
			break
		}
		start, end = lineBounds(text, end+1)
	}
	for ; delta < 0; delta++ {
		if start == 0 {
			break
		}
		start, end = lineBounds(text, start-1)
	}
	return min(start+col, end)
}

// lineOf returns the zero-based line number of pos.
func lineOf(text []rune, pos int) int {
	n := 0
	for i := 0; i < pos && i < len(text); i++ {
		if text[i] == '\n' {
			n++
		}
	}
	return n
}
