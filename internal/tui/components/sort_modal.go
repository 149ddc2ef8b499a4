package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/tui/styles"
)

// SortOption is one sortable column
type SortOption struct {
	Label    string
	Accessor string // empty means server order
}

// SortDirection represents sort direction
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

// SortSelection represents the user's sort choice
type SortSelection struct {
	Option    SortOption
	Direction SortDirection
}

// Desc reports whether the selection sorts descending
func (s SortSelection) Desc() bool {
	return s.Direction == SortDesc
}

// SortModal is a small popup for choosing the column the page is sorted by
type SortModal struct {
	visible      bool
	options      []SortOption
	cursor       int
	activeAccess string
	activeDir    SortDirection
}

// NewSortModal creates a new sort modal
func NewSortModal() SortModal {
	return SortModal{}
}

// Show displays the modal with the given options and current sort state.
// A "Server order" option is always offered first.
func (m *SortModal) Show(options []SortOption, activeAccessor string, activeDir SortDirection) {
	m.visible = true
	m.options = append([]SortOption{{Label: "Server order"}}, options...)
	m.activeAccess = activeAccessor
	m.activeDir = activeDir
	m.cursor = 0
	for i, opt := range m.options {
		if opt.Accessor == activeAccessor {
			m.cursor = i
			break
		}
	}
}

// Hide dismisses the modal
func (m *SortModal) Hide() {
	m.visible = false
}

// IsVisible returns whether the modal is shown
func (m SortModal) IsVisible() bool {
	return m.visible
}

// HandleKey processes a key press, returns (handled, selection).
// If selection is non-nil, the user confirmed a choice.
func (m *SortModal) HandleKey(key string) (handled bool, selection *SortSelection) {
	if !m.visible {
		return false, nil
	}

	switch key {
	case "j", "down":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
		return true, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return true, nil
	case "enter":
		chosen := m.options[m.cursor]
		dir := SortAsc
		if chosen.Accessor != "" && chosen.Accessor == m.activeAccess && m.activeDir == SortAsc {
			dir = SortDesc
		}
		m.visible = false
		return true, &SortSelection{Option: chosen, Direction: dir}
	case "esc", "s":
		m.visible = false
		return true, nil
	}

	return true, nil // consume all keys when visible
}

// View renders the sort modal
func (m SortModal) View() string {
	if !m.visible || len(m.options) == 0 {
		return ""
	}

	var lines []string
	for i, opt := range m.options {
		selected := i == m.cursor
		isActive := opt.Accessor == m.activeAccess

		prefix := "  "
		if isActive {
			prefix = "✓ "
		}

		var suffix string
		if isActive && opt.Accessor != "" {
			if m.activeDir == SortAsc {
				suffix = " ↑"
			} else {
				suffix = " ↓"
			}
		}

		text := styles.Pad(prefix+opt.Label+suffix, 24)

		fg := styles.LightGray
		if isActive {
			fg = styles.Amber
		}
		style := lipgloss.NewStyle().Foreground(fg)
		if selected {
			style = lipgloss.NewStyle().Foreground(styles.White).Background(styles.SlateLight)
		}
		lines = append(lines, style.Render(text))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(0, 1).
		Render(styles.ModalTitleStyle.Render("Sort page by") + "\n" + strings.Join(lines, "\n"))
}
