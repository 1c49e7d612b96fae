package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left        key.Binding
	Right       key.Binding
	Up          key.Binding
	Down        key.Binding
	Mark        key.Binding
	Filter      key.Binding
	FilterLines key.Binding
	Insert      key.Binding
	Undo        key.Binding
	Save        key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "move left")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "move right")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Mark:        key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "start or drop a selection")),
		Filter:      key.NewBinding(key.WithKeys("|"), key.WithHelp("|", "filter selection through a command")),
		FilterLines: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "filter whole lines through a command")),
		Insert:      key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "insert command output at the cursor")),
		Undo:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "hide panel, drop selection")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit, cancelling running commands")),
	}
}

// bindings lists the keys in help order.
func (k keyMap) bindings() []key.Binding {
	return []key.Binding{
		k.Left, k.Right, k.Up, k.Down, k.Mark,
		k.Filter, k.FilterLines, k.Insert,
		k.Undo, k.Save, k.Dismiss, k.Help, k.Quit,
	}
}
