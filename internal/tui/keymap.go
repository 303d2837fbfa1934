package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines global key bindings used across the TUI.
type keyMap struct {
	Quit     key.Binding
	Play     key.Binding
	Check    key.Binding
	Settings key.Binding
	Home     key.Binding
	Logout   key.Binding
	HashFile key.Binding
	EditPath key.Binding
	EditLang key.Binding
	Tab      key.Binding
	Submit   key.Binding
	Cancel   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play"),
		),
		Check: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "check for updates"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		Home: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "home"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "logout"),
		),
		HashFile: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate hash file"),
		),
		EditPath: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit game path"),
		),
		EditLang: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "edit language"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
