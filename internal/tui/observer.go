package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// PageSizeObserver adapts settings.Provider subscriptions to a channel for
// Bubble Tea.
type PageSizeObserver struct {
	ch chan int
}

// NewPageSizeObserver creates a new channel-based observer.
func NewPageSizeObserver() *PageSizeObserver {
	return &PageSizeObserver{ch: make(chan int, 1)}
}

// OnChange sends the new size to the channel (non-blocking if full).
func (o *PageSizeObserver) OnChange(size int) {
	select {
	case o.ch <- size:
	default: // Non-blocking if channel full
	}
}

// Wait returns a command that delivers the next change as a
// PageSizeChangedMsg.
func (o *PageSizeObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		size, ok := <-o.ch
		if !ok {
			return nil
		}
		return PageSizeChangedMsg{Size: size}
	}
}
