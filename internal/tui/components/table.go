package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/table"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// Layout constants for the table
const (
	tableChromeHeight = 4 // border top/bottom, header, pager
	columnGap         = 2
	checkboxWidth     = 4
)

// Table draws a table.Props surface with a cursor
type Table struct {
	title   string
	props   table.Props[domain.Record]
	focused bool
	width   int
	height  int
	cursor  int
	offset  int

	sortAccessor string
	sortDesc     bool
	filter       string
}

// NewTable creates a new table component
func NewTable(title string) Table {
	return Table{title: title}
}

// SetProps replaces what the table renders. The cursor is clamped.
func (t *Table) SetProps(p table.Props[domain.Record]) {
	t.props = p
	t.clamp()
}

// Props returns the current surface props
func (t Table) Props() table.Props[domain.Record] {
	return t.props
}

// SetSize updates the component dimensions
func (t *Table) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.clamp()
}

// SetFocused sets the focus state
func (t *Table) SetFocused(focused bool) {
	t.focused = focused
}

// SetTitle updates the title shown in the border
func (t *Table) SetTitle(title string) {
	t.title = title
}

// SetSort records the active client-side sort for the header indicator
func (t *Table) SetSort(accessor string, desc bool) {
	t.sortAccessor = accessor
	t.sortDesc = desc
}

// SetFilter records the local filter shown in the header
func (t *Table) SetFilter(filter string) {
	t.filter = filter
}

// Cursor returns the cursor row index
func (t Table) Cursor() int {
	return t.cursor
}

// SetCursor moves the cursor to idx
func (t *Table) SetCursor(idx int) {
	t.cursor = idx
	t.clamp()
}

// SelectedRow returns the row under the cursor
func (t Table) SelectedRow() (domain.Record, bool) {
	if t.props.Loading || t.cursor < 0 || t.cursor >= len(t.props.Data) {
		return nil, false
	}
	return t.props.Data[t.cursor], true
}

// MoveUp moves the cursor up n rows
func (t *Table) MoveUp(n int) {
	t.cursor -= n
	t.clamp()
}

// MoveDown moves the cursor down n rows
func (t *Table) MoveDown(n int) {
	t.cursor += n
	t.clamp()
}

// Top moves the cursor to the first row
func (t *Table) Top() {
	t.cursor = 0
	t.clamp()
}

// Bottom moves the cursor to the last row
func (t *Table) Bottom() {
	t.cursor = len(t.props.Data) - 1
	t.clamp()
}

// VisibleRows returns how many data rows fit
func (t Table) VisibleRows() int {
	return max(t.height-tableChromeHeight, 1)
}

func (t *Table) clamp() {
	n := len(t.props.Data)
	if t.cursor >= n {
		t.cursor = n - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	visible := t.VisibleRows()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+visible {
		t.offset = t.cursor - visible + 1
	}
	if t.offset > max(n-visible, 0) {
		t.offset = max(n-visible, 0)
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// columnWidths fits the declared widths into the available width. The
// last column absorbs what is left.
func (t Table) columnWidths(available int) []int {
	cols := t.props.Columns
	widths := make([]int, len(cols))
	used := 0
	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = 12
		}
		widths[i] = w
		used += w + columnGap
	}
	if len(widths) == 0 {
		return widths
	}
	last := len(widths) - 1
	if extra := available - used; extra > 0 {
		widths[last] += extra
	}
	for used > available && last >= 0 {
		over := used - available
		shrink := min(over, widths[last]-3)
		if shrink <= 0 {
			last--
			continue
		}
		widths[last] -= shrink
		used -= shrink
		last--
	}
	return widths
}

func (t Table) headerCell(c table.Column[domain.Record]) string {
	h := c.Header
	if c.Accessor == t.sortAccessor && t.sortAccessor != "" {
		if t.sortDesc {
			h += " ↓"
		} else {
			h += " ↑"
		}
	}
	return h
}

// View renders the component
func (t Table) View() string {
	style := styles.InactiveBorder
	if t.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()
	innerW := max(t.width-frameW, 10)
	innerH := max(t.height-frameH, 3)

	var lines []string
	lines = append(lines, t.renderTitle(innerW))

	body := t.props.Body()
	switch body.Kind {
	case table.BodyLoading:
		lines = append(lines, styles.DimStyle.Render(body.Text))
	case table.BodyEmpty:
		lines = append(lines, styles.DimStyle.Render(body.Text))
	default:
		lines = append(lines, t.renderRows(body, innerW)...)
	}

	for len(lines) < innerH-1 {
		lines = append(lines, "")
	}
	if len(lines) > innerH-1 {
		lines = lines[:innerH-1]
	}
	lines = append(lines, t.renderPager(innerW))

	return style.
		Width(innerW).
		Height(innerH).
		Render(strings.Join(lines, "\n"))
}

func (t Table) renderTitle(width int) string {
	title := styles.AccentStyle.Render(t.title)
	if t.filter != "" {
		title += styles.FilterPromptStyle.Render("  /") + styles.FilterStyle.Render(t.filter)
	}
	return styles.Truncate(title, width)
}

func (t Table) renderRows(body table.Body, width int) []string {
	selectable := t.props.Selection != nil
	available := width
	if selectable {
		available -= checkboxWidth
	}
	widths := t.columnWidths(available)

	var header strings.Builder
	if selectable {
		header.WriteString(styles.Pad(checkbox(t.props.AllSelected()), checkboxWidth))
	}
	for i, c := range t.props.Columns {
		header.WriteString(styles.Pad(t.headerCell(c), widths[i]))
		header.WriteString(strings.Repeat(" ", columnGap))
	}
	lines := []string{styles.HeaderStyle.Render(styles.Truncate(header.String(), width))}

	end := min(t.offset+t.VisibleRows(), len(body.Rows))
	for i := t.offset; i < end; i++ {
		row := t.props.Data[i]
		var b strings.Builder
		if selectable {
			b.WriteString(styles.Pad(checkbox(t.props.IsSelected(row)), checkboxWidth))
		}
		for j, cell := range body.Rows[i] {
			b.WriteString(styles.Pad(oneLine(cell), widths[j]))
			b.WriteString(strings.Repeat(" ", columnGap))
		}
		text := styles.Pad(b.String(), width)

		style := styles.NormalRowStyle
		switch {
		case i == t.cursor && t.focused:
			style = styles.SelectedRowStyle
		case table.IsTempID(body.IDs[i]):
			style = styles.TempRowStyle
		}
		lines = append(lines, style.Render(text))
	}
	return lines
}

func (t Table) renderPager(width int) string {
	p := t.props
	prev := styles.DimStyle.Render("‹ prev")
	if p.CanPrev() {
		prev = styles.AccentStyle.Render("‹ prev")
	}
	next := styles.DimStyle.Render("next ›")
	if p.CanNext() {
		next = styles.AccentStyle.Render("next ›")
	}
	info := styles.DimStyle.Render(fmt.Sprintf(" Page %d of %d · %d items · %d per page ",
		max(p.CurrentPage, 1), max(p.TotalPages, 1), p.TotalItems, p.PageSize))
	return styles.Truncate(lipgloss.JoinHorizontal(lipgloss.Top, prev, info, next), width)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
