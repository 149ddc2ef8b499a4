package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/tui/styles"
)

// ConfirmModal asks a yes/no question before a destructive action
type ConfirmModal struct {
	visible bool
	title   string
	body    string
}

// NewConfirmModal creates a new confirm modal
func NewConfirmModal() ConfirmModal {
	return ConfirmModal{}
}

// Show displays the question
func (m *ConfirmModal) Show(title, body string) {
	m.visible = true
	m.title = title
	m.body = body
}

// Hide dismisses the modal
func (m *ConfirmModal) Hide() {
	m.visible = false
}

// IsVisible returns whether the modal is shown
func (m ConfirmModal) IsVisible() bool {
	return m.visible
}

// HandleKey processes a key press, returns (handled, confirmed).
func (m *ConfirmModal) HandleKey(key string) (handled bool, confirmed bool) {
	if !m.visible {
		return false, false
	}
	switch key {
	case "y", "Y", "enter":
		m.visible = false
		return true, true
	case "n", "N", "esc", "q":
		m.visible = false
		return true, false
	}
	return true, false
}

// View renders the confirm modal
func (m ConfirmModal) View() string {
	if !m.visible {
		return ""
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render(m.title),
		styles.Truncate(m.body, 60),
		"",
		styles.HelpKeyStyle.Render("y")+styles.HelpDescStyle.Render(" confirm  ")+
			styles.HelpKeyStyle.Render("n")+styles.HelpDescStyle.Render(" cancel"),
	)
	return styles.ModalStyle.Render(content)
}
