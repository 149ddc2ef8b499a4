package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// FormField is one editable column in a FormModal
type FormField struct {
	Column domain.Column
	input  textinput.Model
}

// FormModal edits the editable columns of a record. Tab moves between
// fields; enter on the last field submits; ctrl+s submits from anywhere.
type FormModal struct {
	visible bool
	title   string
	id      string // empty when creating
	fields  []FormField
	focus   int
	err     string
}

// NewFormModal creates a new form modal
func NewFormModal() FormModal {
	return FormModal{}
}

// Show opens the form for columns, prefilled from rec. id is the record
// being edited, or empty for a new record.
func (m *FormModal) Show(title, id string, columns []domain.Column, rec domain.Record) {
	m.visible = true
	m.title = title
	m.id = id
	m.err = ""
	m.focus = 0
	m.fields = make([]FormField, len(columns))
	for i, col := range columns {
		ti := textinput.New()
		ti.CharLimit = 500
		ti.Width = 40
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		if col.Kind == domain.KindBool {
			ti.Placeholder = "yes/no"
		}
		if col.Kind == domain.KindSecret {
			ti.EchoMode = textinput.EchoPassword
		}
		if rec != nil {
			ti.SetValue(formValue(col, rec))
		}
		m.fields[i] = FormField{Column: col, input: ti}
	}
	m.focusField(0)
}

func formValue(col domain.Column, rec domain.Record) string {
	v, ok := rec.Lookup(col.Path)
	if !ok || v == nil {
		return ""
	}
	if col.Kind == domain.KindBool {
		switch strings.ToLower(domain.FormatValue(v)) {
		case "1", "true", "yes":
			return "yes"
		default:
			return "no"
		}
	}
	return domain.FormatValue(v)
}

func (m *FormModal) focusField(i int) {
	if len(m.fields) == 0 {
		return
	}
	m.fields[m.focus].input.Blur()
	m.focus = (i + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
}

// Hide dismisses the modal
func (m *FormModal) Hide() {
	m.visible = false
	for i := range m.fields {
		m.fields[i].input.Blur()
	}
}

// IsVisible returns whether the modal is shown
func (m FormModal) IsVisible() bool {
	return m.visible
}

// EditingID returns the id of the record being edited, or empty
func (m FormModal) EditingID() string {
	return m.id
}

// SetError shows a validation error under the fields
func (m *FormModal) SetError(msg string) {
	m.err = msg
}

// Values returns the field values keyed by column path
func (m FormModal) Values() map[string]string {
	out := make(map[string]string, len(m.fields))
	for _, f := range m.fields {
		out[f.Column.Path] = f.input.Value()
	}
	return out
}

// Update handles input events, returns (modal, cmd, submitted)
func (m FormModal) Update(msg tea.Msg) (FormModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.Hide()
			return m, nil, false
		case "ctrl+s":
			return m, nil, true
		case "tab", "down":
			m.focusField(m.focus + 1)
			return m, nil, false
		case "shift+tab", "up":
			m.focusField(m.focus - 1)
			return m, nil, false
		case "enter":
			if m.focus == len(m.fields)-1 {
				return m, nil, true
			}
			m.focusField(m.focus + 1)
			return m, nil, false
		}
	}

	if len(m.fields) == 0 {
		return m, nil, false
	}
	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd, false
}

// View renders the form modal
func (m FormModal) View() string {
	if !m.visible {
		return ""
	}

	const labelWidth = 18

	var lines []string
	lines = append(lines, styles.ModalTitleStyle.Render(m.title))
	for i, f := range m.fields {
		label := f.Column.Header
		if f.Column.Required {
			label += " *"
		}
		labelStyle := styles.DimStyle
		if i == m.focus {
			labelStyle = styles.AccentStyle
		}
		lines = append(lines, labelStyle.Render(styles.Pad(label, labelWidth))+f.input.View())
	}
	if m.err != "" {
		lines = append(lines, "", styles.ErrorStyle.Render(m.err))
	}
	lines = append(lines, "", styles.HelpKeyStyle.Render("tab")+styles.HelpDescStyle.Render(" next  ")+
		styles.HelpKeyStyle.Render("C-s")+styles.HelpDescStyle.Render(" save  ")+
		styles.HelpKeyStyle.Render("esc")+styles.HelpDescStyle.Render(" cancel"))

	return styles.ModalStyle.Render(strings.Join(lines, "\n"))
}
