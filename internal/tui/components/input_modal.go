package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/tui/styles"
)

// InputEvent reports what an input modal update did
type InputEvent int

const (
	InputNone InputEvent = iota
	// InputChanged is only reported by live modals
	InputChanged
	InputSubmitted
	InputCancelled
)

// InputModal is a single-line text input modal. A live modal reports
// every edit so the caller can preview it, and Initial gives back the
// value to restore on cancel.
type InputModal struct {
	visible bool
	live    bool
	title   string
	hint    string
	initial string
	input   textinput.Model
}

// NewInputModal creates a new input modal
func NewInputModal() InputModal {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = "› "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return InputModal{input: ti}
}

// Show opens the modal with an initial value
func (m *InputModal) Show(title, value, placeholder, hint string) {
	m.visible = true
	m.live = false
	m.title = title
	m.hint = hint
	m.initial = value
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// ShowLive opens the modal in live mode
func (m *InputModal) ShowLive(title, value, placeholder, hint string) {
	m.Show(title, value, placeholder, hint)
	m.live = true
}

// Hide dismisses the modal
func (m *InputModal) Hide() {
	m.visible = false
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m InputModal) IsVisible() bool {
	return m.visible
}

// Value returns the current input value
func (m InputModal) Value() string {
	return m.input.Value()
}

// Initial returns the value the modal was opened with
func (m InputModal) Initial() string {
	return m.initial
}

// Live reports whether edits are previewed
func (m InputModal) Live() bool {
	return m.live
}

// Update handles input events
func (m InputModal) Update(msg tea.Msg) (InputModal, tea.Cmd, InputEvent) {
	if !m.visible {
		return m, nil, InputNone
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			m.Hide()
			return m, nil, InputSubmitted
		case "esc":
			m.Hide()
			return m, nil, InputCancelled
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.live && m.input.Value() != before {
		return m, cmd, InputChanged
	}
	return m, cmd, InputNone
}

// View renders the input modal
func (m InputModal) View() string {
	if !m.visible {
		return ""
	}

	const modalWidth = 44

	title := m.title
	if m.live {
		title += styles.DimStyle.Render("  (live)")
	}
	titleStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Bold(true).
		Width(modalWidth).
		Background(styles.SlateDark)

	inputStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	spacer := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark).
		Render("")

	parts := []string{
		titleStyle.Render(title),
		spacer,
		inputStyle.Render(m.input.View()),
	}
	if m.hint != "" {
		parts = append(parts, spacer, styles.DimStyle.Width(modalWidth).Render(m.hint))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
