package tui

import (
	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/table"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// PageLoadedMsg carries the outcome of one fetch cycle
type PageLoadedMsg struct {
	Key     string // resource key
	Outcome table.Outcome[domain.Record]
}

// MutationSettledMsg carries the server's answer to an optimistic mutation
type MutationSettledMsg struct {
	Key        string
	Settlement table.Settlement[domain.Record]
}

// StreamEventMsg carries one event of a streamed run
type StreamEventMsg struct {
	Event stream.Event
}

// ProgramsLoadedMsg signals that program names for the picker arrived
type ProgramsLoadedMsg struct {
	Names []string
}

// HistoryLoadedMsg signals that the run history was read
type HistoryLoadedMsg struct {
	Runs []domain.RunRecord
}

// CopiedMsg signals that text was put on the clipboard
type CopiedMsg struct {
	What string
}

// PageSizeChangedMsg signals that the shared page size changed
type PageSizeChangedMsg struct {
	Size int
}

// AutoClearMsg clears the run output if the run it was scheduled for is
// still the latest one
type AutoClearMsg struct {
	SessionID string
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
