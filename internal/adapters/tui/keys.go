package tui

import "github.com/charmbracelet/bubbles/key"

// HistoryKeyMap defines key bindings for the history browser.
type HistoryKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevBr   key.Binding
	NextBr   key.Binding
	Checkout key.Binding
	Undo     key.Binding
	Redo     key.Binding
	Quit     key.Binding
}

// HistoryKeys are the default bindings.
var HistoryKeys = HistoryKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PrevBr: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "previous branch"),
	),
	NextBr: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next branch"),
	),
	Checkout: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "checkout"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "redo"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}
