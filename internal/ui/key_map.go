package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	play      key.Binding
	next      key.Binding
	prev      key.Binding
	shuffle   key.Binding
	repeat    key.Binding
	seekBack  key.Binding
	seekFwd   key.Binding
	volUp     key.Binding
	volDown   key.Binding
	expand    key.Binding
	search    key.Binding
	playlists key.Binding
	add       key.Binding
	remove    key.Binding
	create    key.Binding
	delete    key.Binding
	connect   key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		seekBack:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		seekFwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		expand:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "visualizer")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		playlists: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "playlists")),
		add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to playlist")),
		remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove from playlist")),
		create:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new playlist")),
		delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete playlist")),
		connect:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.play, k.next, k.prev, k.search, k.playlists, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.play},
		{k.next, k.prev, k.seekBack, k.seekFwd},
		{k.shuffle, k.repeat, k.volUp, k.volDown},
		{k.search, k.expand, k.playlists, k.connect},
		{k.add, k.remove, k.help, k.quit},
	}
}
