package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/alchemy/internal/models"
	"github.com/desertthunder/alchemy/internal/tasks"
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
	MsgEnginesFetched MsgKind = iota
	MsgEngineChecked
	MsgProgressUpdate
	MsgCheckComplete
)

type enginesFetched struct {
	engines []models.EngineView
	err     error
}

type checkComplete struct {
	report *tasks.CheckReport
	err    error
}

// enginesFetchedMsg is the constructor for [MsgEnginesFetched]
func enginesFetchedMsg(engines []models.EngineView, err error) Msg {
	return Msg{kind: MsgEnginesFetched, data: enginesFetched{engines, err}}
}

// engineCheckedMsg is the constructor for [MsgEngineChecked]
func engineCheckedMsg(result tasks.CheckResult) Msg {
	return Msg{kind: MsgEngineChecked, data: result}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// checkCompleteMsg is the constructor for [MsgCheckComplete]
func checkCompleteMsg(report *tasks.CheckReport, err error) Msg {
	return Msg{kind: MsgCheckComplete, data: checkComplete{report, err}}
}
