package headless

import "fmt"

const (
	colorGreen = 42
	colorRed   = 196
	colorCyan  = 117
	colorDim   = 241
)

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"

// ansi wraps text with an SGR escape code.
func ansi(code int, text string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", code, text)
}

// bold renders text in bold.
func bold(text string) string {
	return ansi(1, text)
}

// fg wraps text with a 256-color foreground escape.
func fg(color int, text string) string {
	return fmt.Sprintf("\033[38;5;%dm%s\033[0m", color, text)
}
