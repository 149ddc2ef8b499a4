package components

import "github.com/charmbracelet/bubbles/key"

// RunKeyMap defines key bindings for the run view
type RunKeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Start   key.Binding
	Cancel  key.Binding
	Leave   key.Binding
	Restore key.Binding

	// Output pane
	Copy    key.Binding
	Clear   key.Binding
	History key.Binding
	Preset  key.Binding
	Follow  key.Binding
	HistUp  key.Binding
	HistDn  key.Binding
	Rerun   key.Binding
}

// DefaultRunKeyMap returns the default run view key bindings
func DefaultRunKeyMap() RunKeyMap {
	return RunKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "previous field"),
		),
		Start: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "run"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "cancel"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave"),
		),
		Restore: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("C-u", "restore command"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy output"),
		),
		Clear: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear output"),
		),
		History: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "history"),
		),
		Preset: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "preset"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		HistUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "previous run"),
		),
		HistDn: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "next run"),
		),
		Rerun: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "load run"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer
func (k RunKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Cancel, k.Next, k.Leave}
}

// FullHelp returns the bindings shown on the help screen
func (k RunKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Start, k.Cancel, k.Restore, k.Leave},
		{k.Copy, k.Clear, k.History, k.Preset, k.Follow, k.HistUp, k.HistDn, k.Rerun},
	}
}

// RunKeys is the global run view key map instance
var RunKeys = DefaultRunKeyMap()
