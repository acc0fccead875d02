package canvas

import "github.com/charmbracelet/bubbles/v2/key"

// KeyMap defines key bindings for the canvas
type KeyMap struct {
	ScrollLeft  key.Binding
	ScrollRight key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	Next        key.Binding
	Prev        key.Binding
	Later       key.Binding
	Earlier     key.Binding
	Lengthen    key.Binding
	Shorten     key.Binding
	Retune      key.Binding
	Recolor     key.Binding
	Delete      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ScrollLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "scroll left"),
		),
		ScrollRight: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "scroll right"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "j"),
			key.WithHelp("tab/j", "next segment"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "k"),
			key.WithHelp("shift+tab/k", "previous segment"),
		),
		Later: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "move later"),
		),
		Earlier: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "move earlier"),
		),
		Lengthen: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "lengthen"),
		),
		Shorten: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "shorten"),
		),
		Retune: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "retune up a semitone"),
		),
		Recolor: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "next color"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete segment"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Bindings lists every binding in help order.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{
		k.ScrollLeft, k.ScrollRight, k.ZoomIn, k.ZoomOut,
		k.Next, k.Prev, k.Later, k.Earlier, k.Lengthen, k.Shorten,
		k.Retune, k.Recolor, k.Delete, k.Help, k.Quit,
	}
}
