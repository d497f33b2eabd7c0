package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/models"
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
	MsgSnapshot MsgKind = iota
	MsgProgress
	MsgIdle
	MsgStatus
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap models.PlaybackSnapshot, paused bool) Msg {
	return Msg{
		kind: MsgSnapshot,
		data: struct {
			snapshot models.PlaybackSnapshot
			paused   bool
		}{snap, paused},
	}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(p models.Progress, paused bool) Msg {
	return Msg{
		kind: MsgProgress,
		data: struct {
			progress models.Progress
			paused   bool
		}{p, paused},
	}
}

// idleMsg is the constructor for [MsgIdle]
func idleMsg() Msg {
	return Msg{kind: MsgIdle}
}

// statusMsg is the constructor for [MsgStatus]
func statusMsg(text string) Msg {
	return Msg{kind: MsgStatus, data: text}
}
