package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/tui/components"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	layout := m.calculateLayout(m.Width)

	var main string
	if v := m.activeView(); v != nil {
		main = v.Table.View()
		if layout.inspectorWidth > 0 {
			main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.Inspector.View())
		}
	} else {
		main = m.Run.View()
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, m.Sidebar.View(), main)
	view := lipgloss.JoinVertical(lipgloss.Left, content, m.renderFooter())

	// Overlays, most recently opened last
	for _, modal := range []struct {
		visible bool
		view    func() string
	}{
		{m.SortModal.IsVisible(), m.SortModal.View},
		{m.Picker.IsVisible(), m.Picker.View},
		{m.InputModal.IsVisible(), m.InputModal.View},
		{m.FormModal.IsVisible(), m.FormModal.View},
		{m.ConfirmModal.IsVisible(), m.ConfirmModal.View},
	} {
		if modal.visible {
			view = lipgloss.Place(m.Width, m.Height,
				lipgloss.Center, lipgloss.Center,
				modal.view())
		}
	}

	return view
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	// Left side: spinner while the active table loads, else the status message
	var left string
	if v := m.activeView(); v != nil && v.Loading() {
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading "+v.Res.Title+"...")
	} else if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	// Center section: context-specific hints
	h := help.New()
	h.Styles.ShortKey = styles.AccentStyle
	h.Styles.ShortDesc = styles.DimStyle
	h.Styles.ShortSeparator = styles.DimStyle
	var center string
	switch {
	case m.Focus == PaneSidebar:
		center = h.ShortHelpView([]key.Binding{Keys.Enter, Keys.RunView})
	case m.ActiveKey == components.RunEntryKey:
		center = h.ShortHelpView(components.RunKeys.ShortHelp())
	default:
		if v := m.activeView(); v != nil && v.ReadOnly() {
			center = h.ShortHelpView([]key.Binding{Keys.Search, Keys.Filter, Keys.Copy, Keys.Inspector})
		} else {
			center = h.ShortHelpView(Keys.ShortHelp())
		}
	}

	// Right side: "? help" hint
	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		// Not enough space - just left + right
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	// Center the hints in available space
	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle
	h.Styles.FullSeparator = styles.DimStyle

	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render("Keys"),
		"",
		h.View(Keys),
		"",
		styles.ModalTitleStyle.Render("Run view"),
		"",
		h.View(components.RunKeys),
		"",
		styles.DimStyle.Render("Press any key to return..."),
	)

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(body))
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(components.SpinnerFrame(frame))
}
