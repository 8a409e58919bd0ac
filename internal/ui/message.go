package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/novadrive/internal/audio"
	"github.com/desertthunder/novadrive/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSyncComplete
	MsgActionDone
	MsgPlaylistsChanged
	MsgFrame
	MsgArtwork
	MsgTick
)

// outcome is the payload of messages that finish a background operation.
type outcome struct {
	note string
	err  error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(err error) Msg {
	return Msg{kind: MsgSyncComplete, data: outcome{err: err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(err error) Msg {
	return Msg{kind: MsgActionDone, data: outcome{err: err}}
}

// playlistsChangedMsg is the constructor for [MsgPlaylistsChanged]
func playlistsChangedMsg(note string, err error) Msg {
	return Msg{kind: MsgPlaylistsChanged, data: outcome{note: note, err: err}}
}

// frameMsg is the constructor for [MsgFrame]
func frameMsg(bins []uint8) Msg {
	return Msg{kind: MsgFrame, data: bins}
}

// artworkMsg is the constructor for [MsgArtwork]
func artworkMsg(up audio.ArtworkUpgrade) Msg {
	return Msg{kind: MsgArtwork, data: up}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
