package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings outside text inputs.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Back       key.Binding

	Login      key.Binding
	Logout     key.Binding
	Reconnect  key.Binding
	ClearError key.Binding

	Refresh key.Binding
	Open    key.Binding
	Upload  key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding

	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	WarnOnly key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "Quit")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "Toggle help")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "Cycle views")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Back to results")),

		Login:      key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "Log in")),
		Logout:     key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "Log out")),
		Reconnect:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "Reconnect")),
		ClearError: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Clear error")),

		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh results")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Open result")),
		Upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "Upload file")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Delete result")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "Confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "Cancel")),

		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "Move up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "Move down")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "Go to top")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Go to bottom")),

		WarnOnly: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "Logs: warnings only")),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Upload, k.Delete, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Back, k.Up, k.Down, k.Top, k.Bottom},
		{k.Open, k.Upload, k.Delete, k.Refresh, k.WarnOnly},
		{k.Login, k.Logout, k.Reconnect, k.ClearError},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
