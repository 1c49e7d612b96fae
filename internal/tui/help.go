package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
)

// helpMarkdown describes the key bindings.
func helpMarkdown(k keyMap) string {
	var b strings.Builder
	b.WriteString("# shellfilter\n\n")
	b.WriteString("Pipe text through shell commands. `|` replaces each selection with the command's output, ")
	b.WriteString("`!` inserts the output at each cursor. Pressing the key again while the command runs cancels it.\n\n")
	b.WriteString("| Key | Action |\n|-----|--------|\n")
	for _, binding := range k.bindings() {
		h := binding.Help()
		fmt.Fprintf(&b, "| `%s` | %s |\n", strings.ReplaceAll(h.Key, "|", "\\|"), h.Desc)
	}
	return b.String()
}

// renderHelp renders the help screen with r, or as plain text without one.
func renderHelp(r *glamour.TermRenderer, k keyMap) string {
	md := helpMarkdown(k)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		debug.Logf("[tui] render help: %v", err)
		return md
	}
	return out
}
