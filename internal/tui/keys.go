package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/mmcdole/imgwall/internal/tui/components"
)

// KeyMap defines the application-level key bindings
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Filter key.Binding
	Reload key.Binding

	// Grid navigation, listed for help only
	Grid components.GridKeyMap
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload failed"),
		),
		Grid: components.GridKeys,
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.Reload, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Grid.Up, k.Grid.Down, k.Grid.Left, k.Grid.Right},
		{k.Grid.Home, k.Grid.End, k.Grid.HalfUp, k.Grid.HalfDown},
		{k.Filter, k.Grid.Escape, k.Reload, k.Quit},
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
