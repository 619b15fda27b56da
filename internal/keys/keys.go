package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual sync
	Sync key.Binding

	// Focus queue cycling
	NextQueue key.Binding

	// Triage actions
	Pin            key.Binding
	PriorityHigh   key.Binding
	PriorityNormal key.Binding
	PriorityLow    key.Binding
	Archive        key.Binding
	Move           key.Binding
	FollowUp       key.Binding

	// Detail view question handling
	NextQuestion   key.Binding
	ToggleQuestion key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open thread"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Sync: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sync now"),
		),
		NextQueue: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next queue"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin/unpin"),
		),
		PriorityHigh: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "high priority"),
		),
		PriorityNormal: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "normal priority"),
		),
		PriorityLow: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "low priority"),
		),
		Archive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "archive"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to bucket"),
		),
		FollowUp: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow up tomorrow/clear"),
		),
		NextQuestion: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next question"),
		),
		ToggleQuestion: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle answered"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Sync,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Search, k.Command, k.Help, k.Sync, k.NextQueue},
		{k.Pin, k.PriorityHigh, k.PriorityNormal, k.PriorityLow},
		{k.Archive, k.Move, k.FollowUp, k.NextQuestion, k.ToggleQuestion},
	}
}
