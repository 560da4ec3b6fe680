package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	Top         key.Binding
	Bottom      key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Toggle      key.Binding
	Add         key.Binding
	Grab        key.Binding
	DropChild   key.Binding
	DropAbove   key.Binding
	Cancel      key.Binding
	Jump        key.Binding
	Yank        key.Binding
	Save        key.Binding
	History     key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeys is the standard key map.
var DefaultKeys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h", "collapse/parent"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l", "expand/child"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "page down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle"),
	),
	Add: key.NewBinding(
		key.WithKeys("+", "a"),
		key.WithHelp("+", "add child"),
	),
	Grab: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "grab"),
	),
	DropChild: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "drop as child"),
	),
	DropAbove: key.NewBinding(
		key.WithKeys("A", "u"),
		key.WithHelp("A", "drop above"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Jump: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "jump to id"),
	),
	Yank: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy id"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	History: key.NewBinding(
		key.WithKeys("H"),
		key.WithHelp("H", "snapshots"),
	),
	ExpandAll: key.NewBinding(
		key.WithKeys("E"),
		key.WithHelp("E", "expand all"),
	),
	CollapseAll: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "collapse all"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// normalKeys is the key map shown while browsing.
type normalKeys KeyMap

func (k normalKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Grab, k.Jump, k.Save, k.Help, k.Quit}
}

func (k normalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Top, k.Bottom},
		{k.Toggle, k.Add, k.Grab, k.Jump, k.Yank},
		{k.Save, k.History, k.ExpandAll, k.CollapseAll, k.Help, k.Quit},
	}
}

// grabKeys is the key map shown while a node is grabbed.
type grabKeys KeyMap

func (k grabKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.DropChild, k.DropAbove, k.Cancel}
}

func (k grabKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
