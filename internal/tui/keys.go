package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up       key.Binding
	down     key.Binding
	left     key.Binding
	right    key.Binding
	start    key.Binding
	stop     key.Binding
	startAll key.Binding
	stopAll  key.Binding
	logs     key.Binding
	appStart key.Binding
	appStop  key.Binding
	refresh  key.Binding
	help     key.Binding
	quit     key.Binding

	// log overlay
	copy  key.Binding
	close key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		startAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "start all"),
		),
		stopAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "stop all"),
		),
		logs: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter", "logs"),
		),
		appStart: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "start app"),
		),
		appStop: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "stop app"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		close: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "close"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.stop, k.logs, k.startAll, k.stopAll, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right},
		{k.start, k.stop, k.logs, k.refresh},
		{k.startAll, k.stopAll, k.appStart, k.appStop},
		{k.help, k.quit},
	}
}

// overlayKeys is the help shown while the log overlay is open.
type overlayKeys struct {
	keyMap
}

func (k overlayKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.copy, k.close}
}

func (k overlayKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
