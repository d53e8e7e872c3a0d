package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the guard screen.
type KeyMap struct {
	Save      key.Binding
	Live      key.Binding
	Analyze   key.Binding
	Export    key.Binding
	Delete    key.Binding
	Up        key.Binding
	Down      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings for the guard screen.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save last minutes"),
		),
		Live: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle live commentary"),
		),
		Analyze: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "analyze incident"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export incident"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete incident"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous incident"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next incident"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
	}
}

// ShortHelp returns the short help bindings for the guard screen.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Live, k.Analyze, k.Quit}
}

// FullHelp returns the full help bindings for the guard screen.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.Live, k.Analyze},
		{k.Export, k.Delete, k.Up, k.Down},
		{k.Quit, k.ForceQuit},
	}
}
