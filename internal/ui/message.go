package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/studyx/internal/tasks"
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
	MsgControllerEvent MsgKind = iota
	MsgEventsClosed
	MsgRecordSaved
	MsgSyncDone
)

// controllerEventMsg is the constructor for [MsgControllerEvent]
func controllerEventMsg(e tasks.Event) Msg {
	return Msg{kind: MsgControllerEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// recordSavedMsg is the constructor for [MsgRecordSaved]
func recordSavedMsg(result tasks.RecordResult, err error) Msg {
	return Msg{
		kind: MsgRecordSaved,
		data: struct {
			result tasks.RecordResult
			err    error
		}{result, err},
	}
}

// syncDoneMsg is the constructor for [MsgSyncDone]
func syncDoneMsg(sent bool, err error) Msg {
	return Msg{
		kind: MsgSyncDone,
		data: struct {
			sent bool
			err  error
		}{sent, err},
	}
}
