package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings the map view handles itself. Keys not listed
// here go to the interaction controller.
type KeyMap struct {
	Quit      key.Binding
	AddNode   key.Binding
	Edit      key.Binding
	Connect   key.Binding
	Delete    key.Binding
	Pin       key.Binding
	Fit       key.Binding
	Outline   key.Binding
	Detail    key.Binding
	Copy      key.Binding
	Save      key.Binding
	Reload    key.Binding
	Strategy  key.Binding
	Help      key.Binding
	Navigate  key.Binding
	Zoom      key.Binding
	Cycle     key.Binding
	SelectAll key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		AddNode:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new node")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit text")),
		Connect:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		Delete:    key.NewBinding(key.WithKeys("delete", "backspace"), key.WithHelp("del", "delete")),
		Pin:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin/unpin")),
		Fit:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit")),
		Outline:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "outline")),
		Detail:    key.NewBinding(key.WithKeys("d", "enter"), key.WithHelp("d", "details")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Reload:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Strategy:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "layout strategy")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Navigate:  key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "pan")),
		Zoom:      key.NewBinding(key.WithKeys("+", "=", "-", "0"), key.WithHelp("+/-/0", "zoom")),
		Cycle:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next node")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddNode, k.Connect, k.Delete, k.Fit, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.AddNode, k.Edit, k.Connect, k.Delete, k.Pin},
		{k.Navigate, k.Zoom, k.Fit, k.Cycle, k.SelectAll},
		{k.Outline, k.Detail, k.Copy, k.Strategy},
		{k.Save, k.Reload, k.Help, k.Quit},
	}
}
