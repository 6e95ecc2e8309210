package display

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	speak     key.Binding
	silence   key.Binding
	clock     key.Binding
	check     key.Binding
	nextFocus key.Binding
	prevFocus key.Binding
	up        key.Binding
	down      key.Binding
	less      key.Binding
	more      key.Binding
	edit      key.Binding
	cancel    key.Binding
	refresh   key.Binding
	params    key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		speak: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s", "speak"),
		),
		silence: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "silence"),
		),
		clock: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "start/stop clock"),
		),
		check: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "check stamp"),
		),
		nextFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next section"),
		),
		prevFocus: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev section"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		less: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←/h", "decrease"),
		),
		more: key.NewBinding(
			key.WithKeys("right", "l", "+"),
			key.WithHelp("→/l", "increase"),
		),
		edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "done"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload voices"),
		),
		params: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "params json"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.speak, k.silence, k.clock, k.nextFocus, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.speak, k.silence, k.clock, k.check},
		{k.nextFocus, k.prevFocus, k.up, k.down},
		{k.less, k.more, k.edit, k.cancel},
		{k.refresh, k.params, k.help, k.quit},
	}
}
