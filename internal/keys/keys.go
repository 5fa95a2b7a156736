// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// GridKeyMap holds the bindings the grid façade translates into interaction
// messages.
type GridKeyMap struct {
	Delete      key.Binding
	Copy        key.Binding
	Paste       key.Binding
	Edit        key.Binding
	EndEdit     key.Binding
	Narrow      key.Binding
	Widen       key.Binding
	ClearSelect key.Binding
}

// AppKeyMap holds host-level bindings.
type AppKeyMap struct {
	Reload key.Binding
	Help   key.Binding
	Logs   key.Binding
	Quit   key.Binding
}

// Grid is the default grid keymap.
var Grid = GridKeyMap{
	Delete: key.NewBinding(
		key.WithKeys("delete", "backspace"),
		key.WithHelp("del", "delete selection"),
	),
	Copy: key.NewBinding(
		key.WithKeys("ctrl+c", "y"),
		key.WithHelp("y", "copy"),
	),
	Paste: key.NewBinding(
		key.WithKeys("ctrl+v", "p"),
		key.WithHelp("p", "paste"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit/commit cell"),
	),
	EndEdit: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel edit"),
	),
	Narrow: key.NewBinding(
		key.WithKeys("<"),
		key.WithHelp("<", "narrow column"),
	),
	Widen: key.NewBinding(
		key.WithKeys(">"),
		key.WithHelp(">", "widen column"),
	),
	ClearSelect: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear selection"),
	),
}

// App is the default host keymap.
var App = AppKeyMap{
	Reload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reload"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Logs: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "debug logs"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+q"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k GridKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Copy, k.Paste, k.Delete, k.Edit}
}

// FullHelp implements help.KeyMap.
func (k GridKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Copy, k.Paste, k.Delete, k.ClearSelect},
		{k.Edit, k.EndEdit, k.Narrow, k.Widen},
	}
}

// HelpKeyMap combines grid and host bindings for the footer.
type HelpKeyMap struct {
	Grid GridKeyMap
	App  AppKeyMap
}

// ShortHelp implements help.KeyMap.
func (k HelpKeyMap) ShortHelp() []key.Binding {
	return append(k.Grid.ShortHelp(), k.App.Help, k.App.Quit)
}

// FullHelp implements help.KeyMap.
func (k HelpKeyMap) FullHelp() [][]key.Binding {
	return append(k.Grid.FullHelp(), []key.Binding{k.App.Reload, k.App.Help, k.App.Quit})
}
