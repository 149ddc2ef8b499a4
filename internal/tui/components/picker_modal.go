package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/tui/styles"
)

// PickerOption is one choice in a PickerModal
type PickerOption struct {
	Value string
	Label string
	Hint  string
}

// RankFunc orders option values by how well they match query
type RankFunc func(values []string, query string) []string

// PickerModal lists options for single selection. When a RankFunc is set
// the list is narrowed by a query typed into the modal.
type PickerModal struct {
	visible bool
	title   string
	kind    string
	all     []PickerOption
	shown   []PickerOption
	cursor  int
	active  string
	rank    RankFunc
	query   textinput.Model
}

const pickerMaxRows = 12

// NewPickerModal creates a new picker modal
func NewPickerModal() PickerModal {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 100
	ti.Width = 30
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	return PickerModal{query: ti}
}

// Show displays the modal. kind lets the caller tell pickers apart when
// a choice comes back. rank may be nil.
func (m *PickerModal) Show(kind, title string, options []PickerOption, active string, rank RankFunc) {
	m.visible = true
	m.kind = kind
	m.title = title
	m.all = options
	m.active = active
	m.rank = rank
	m.query.SetValue("")
	if rank != nil {
		m.query.Focus()
	} else {
		m.query.Blur()
	}
	m.applyFilter()
	m.cursor = 0
	for i, opt := range m.shown {
		if opt.Value == active {
			m.cursor = i
			break
		}
	}
}

// SetOptions replaces the options while the modal is open
func (m *PickerModal) SetOptions(options []PickerOption) {
	m.all = options
	m.applyFilter()
}

// Hide dismisses the modal
func (m *PickerModal) Hide() {
	m.visible = false
	m.query.Blur()
}

// IsVisible returns whether the modal is shown
func (m PickerModal) IsVisible() bool {
	return m.visible
}

// Kind returns the kind passed to Show
func (m PickerModal) Kind() string {
	return m.kind
}

func (m *PickerModal) applyFilter() {
	if m.rank == nil {
		m.shown = m.all
		return
	}
	byValue := make(map[string]PickerOption, len(m.all))
	values := make([]string, len(m.all))
	for i, opt := range m.all {
		byValue[opt.Value] = opt
		values[i] = opt.Value
	}
	ranked := m.rank(values, m.query.Value())
	m.shown = make([]PickerOption, 0, len(ranked))
	for _, v := range ranked {
		m.shown = append(m.shown, byValue[v])
	}
	if m.cursor >= len(m.shown) {
		m.cursor = max(len(m.shown)-1, 0)
	}
}

// Update handles input events, returns (modal, cmd, chosen). chosen is
// non-nil once the user confirms an option.
func (m PickerModal) Update(msg tea.Msg) (PickerModal, tea.Cmd, *PickerOption) {
	if !m.visible {
		return m, nil, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, nil
	}

	switch keyMsg.String() {
	case "esc":
		m.Hide()
		return m, nil, nil
	case "enter":
		if len(m.shown) == 0 {
			return m, nil, nil
		}
		chosen := m.shown[m.cursor]
		m.Hide()
		return m, nil, &chosen
	case "down", "ctrl+n":
		if m.cursor < len(m.shown)-1 {
			m.cursor++
		}
		return m, nil, nil
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil, nil
	case "j":
		if m.rank == nil {
			if m.cursor < len(m.shown)-1 {
				m.cursor++
			}
			return m, nil, nil
		}
	case "k":
		if m.rank == nil {
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil, nil
		}
	}

	if m.rank == nil {
		return m, nil, nil
	}
	var cmd tea.Cmd
	prev := m.query.Value()
	m.query, cmd = m.query.Update(msg)
	if m.query.Value() != prev {
		m.cursor = 0
		m.applyFilter()
	}
	return m, cmd, nil
}

// View renders the picker modal
func (m PickerModal) View() string {
	if !m.visible {
		return ""
	}

	const width = 40

	var lines []string
	lines = append(lines, styles.ModalTitleStyle.Render(m.title))
	if m.rank != nil {
		lines = append(lines, m.query.View(), "")
	}

	if len(m.shown) == 0 {
		lines = append(lines, styles.DimStyle.Render("No matches"))
	}

	start := 0
	if m.cursor >= pickerMaxRows {
		start = m.cursor - pickerMaxRows + 1
	}
	end := min(start+pickerMaxRows, len(m.shown))
	for i := start; i < end; i++ {
		opt := m.shown[i]
		prefix := "  "
		if opt.Value == m.active {
			prefix = "✓ "
		}
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		text := prefix + label
		if opt.Hint != "" {
			text += styles.DimStyle.Render("  " + opt.Hint)
		}
		text = styles.Pad(text, width)

		switch {
		case i == m.cursor:
			lines = append(lines, lipgloss.NewStyle().Foreground(styles.White).Background(styles.SlateLight).Render(text))
		case opt.Value == m.active:
			lines = append(lines, lipgloss.NewStyle().Foreground(styles.Amber).Render(text))
		default:
			lines = append(lines, lipgloss.NewStyle().Foreground(styles.LightGray).Render(text))
		}
	}
	if len(m.shown) > end {
		lines = append(lines, styles.DimStyle.Render("  …"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Background(styles.SlateDark).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
