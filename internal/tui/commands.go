package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/settings"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/table"
)

// Command factories for async operations

// FetchPageCmd runs one fetch cycle for a resource view
func FetchPageCmd(key string, cycle table.Cycle[domain.Record]) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return PageLoadedMsg{Key: key, Outcome: cycle.Run(ctx)}
	}
}

// MutateCmd sends an optimistic mutation to the server
func MutateCmd(key string, pending table.Pending[domain.Record], m table.Mutator[domain.Record]) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return MutationSettledMsg{Key: key, Settlement: pending.Run(ctx, m)}
	}
}

// OpenStreamCmd dials the terminal socket and submits the session's command
func OpenStreamCmd(sess *stream.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return StreamEventMsg{Event: sess.Open(ctx)}
	}
}

// NextStreamEventCmd waits for the session's next event
func NextStreamEventCmd(sess *stream.Session) tea.Cmd {
	return func() tea.Msg {
		return StreamEventMsg{Event: sess.Next()}
	}
}

// LoadProgramsCmd loads program names for the run view picker
func LoadProgramsCmd(svc *service.RunService, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		names, err := svc.Programs(ctx, refresh)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading programs"}
		}
		return ProgramsLoadedMsg{Names: names}
	}
}

// LoadHistoryCmd reads the recent runs
func LoadHistoryCmd(svc *service.RunService) tea.Cmd {
	return func() tea.Msg {
		runs, err := svc.History(service.DefaultHistoryLimit)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading run history"}
		}
		return HistoryLoadedMsg{Runs: runs}
	}
}

// CopyCmd puts text on the system clipboard
func CopyCmd(text, what string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return StatusMsg{Message: "Nothing to copy", IsError: true}
		}
		if err := clipboard.WriteAll(text); err != nil {
			return ErrMsg{Err: err, Context: "copying " + what}
		}
		return CopiedMsg{What: what}
	}
}

// SetPageSizeCmd stores a new shared page size. Views learn about the
// change through the provider's subscribers.
func SetPageSizeCmd(p *settings.Provider, size int) tea.Cmd {
	return func() tea.Msg {
		if err := p.SetPageSize(size); err != nil {
			return ErrMsg{Err: err, Context: "saving page size"}
		}
		return nil
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// AutoClearCmd clears the run output after a delay
func AutoClearCmd(sessionID string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return AutoClearMsg{SessionID: sessionID}
	})
}
