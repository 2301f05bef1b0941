package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select key.Binding
	Reload key.Binding
	Arabic key.Binding
	Help   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Select: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "select city"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Arabic: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "arabic/latin"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Reload, k.Arabic, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.Enter, k.Back},
		{k.Reload, k.Arabic},
		{k.Help, k.Quit},
	}
}
