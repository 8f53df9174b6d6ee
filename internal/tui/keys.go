package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the workbench key bindings.
type KeyMap struct {
	New       key.Binding
	Close     key.Binding
	Save      key.Binding
	Execute   key.Binding
	Format    key.Binding
	Export    key.Binding
	Theme     key.Binding
	Focus     key.Binding
	Back      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	PrevPage  key.Binding
	NextPage  key.Binding
	Filter    key.Binding
	Open      key.Binding
	Delete    key.Binding
	GoTo      key.Binding
	Up        key.Binding
	Down      key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		New:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Close:     key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Execute:   key.NewBinding(key.WithKeys("ctrl+r", "f5"), key.WithHelp("ctrl+r", "run")),
		Format:    key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "format")),
		Export:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
		Theme:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		Back:      key.NewBinding(key.WithKeys("shift+tab")),
		NextTab:   key.NewBinding(key.WithKeys("alt+right", "ctrl+pgdown"), key.WithHelp("alt+→", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("alt+left", "ctrl+pgup"), key.WithHelp("alt+←", "prev tab")),
		PrevPage:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		NextPage:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		GoTo:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "go to route")),
		Up:        key.NewBinding(key.WithKeys("up", "k")),
		Down:      key.NewBinding(key.WithKeys("down", "j")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Execute, k.Save, k.New, k.Close, k.Focus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Execute, k.Save, k.Format, k.Export},
		{k.New, k.Close, k.NextTab, k.PrevTab},
		{k.Focus, k.Filter, k.Open, k.Delete},
		{k.PrevPage, k.NextPage, k.GoTo, k.Theme},
		{k.Help, k.Quit},
	}
}
