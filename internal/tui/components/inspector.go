package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// Layout constants for inspector
const (
	InspectorBorderHeight     = 2
	InspectorScrollIndicators = 2
)

// inspectorContent holds the three-zone layout content
type inspectorContent struct {
	header string // fixed top
	body   string // scrollable middle
	footer string // fixed bottom
}

// Inspector lists every field of the selected record
type Inspector struct {
	resource   domain.Resource
	record     domain.Record
	width      int
	height     int
	offset     int // scroll offset
	maxVisible int // max visible lines
	reveal     bool
}

// NewInspector creates a new inspector component
func NewInspector() Inspector {
	return Inspector{}
}

// SetRecord sets the record to display
func (i *Inspector) SetRecord(res domain.Resource, rec domain.Record) {
	if rec.GetID() != i.record.GetID() || res.Key != i.resource.Key {
		i.offset = 0 // Reset scroll on item change
		i.reveal = false
	}
	i.resource = res
	i.record = rec
}

// Clear removes the displayed record
func (i *Inspector) Clear() {
	i.record = nil
	i.offset = 0
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
	// Reserve space for border, scroll indicators, title and blank line
	i.maxVisible = max(height-InspectorBorderHeight-InspectorScrollIndicators-2, 1)
}

// HasItem returns true if there is a record to display
func (i Inspector) HasItem() bool {
	return i.record != nil
}

// Record returns the displayed record
func (i Inspector) Record() domain.Record {
	return i.record
}

// ToggleReveal shows or masks secret fields
func (i *Inspector) ToggleReveal() {
	i.reveal = !i.reveal
}

// ScrollDown scrolls the body by n lines
func (i *Inspector) ScrollDown(n int) {
	i.offset += n
}

// ScrollUp scrolls the body by n lines
func (i *Inspector) ScrollUp(n int) {
	i.offset = max(i.offset-n, 0)
}

// Update handles messages (currently no-op, scrolling is driven by the app)
func (i Inspector) Update(_ tea.Msg) (Inspector, tea.Cmd) {
	return i, nil
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder

	// Border takes 2 chars (1 each side), leave 1 char safety margin
	contentWidth := max(i.width-3, 10)
	content := i.renderRecord(contentWidth)

	titleLine := styles.AccentStyle.Render(styles.Truncate("Details", contentWidth))

	// Three-zone layout: header is fixed, body scrolls, footer is fixed
	headerLines := splitLines(content.header)
	footerLines := splitLines(content.footer)
	bodyLines := splitLines(content.body)

	availableForBody := max(i.maxVisible-len(headerLines)-len(footerLines), 1)

	totalBodyLines := len(bodyLines)
	maxOffset := max(totalBodyLines-availableForBody, 0)
	offset := min(i.offset, maxOffset)

	end := min(offset+availableForBody, totalBodyLines)
	visibleBody := bodyLines[offset:end]

	up := " "
	if offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < totalBodyLines {
		down = styles.DimStyle.Render("↓ more")
	}

	parts := []string{titleLine, ""}
	if content.header != "" {
		parts = append(parts, headerLines...)
	}
	parts = append(parts, up)
	parts = append(parts, visibleBody...)
	for j := len(visibleBody); j < availableForBody; j++ {
		parts = append(parts, "")
	}
	parts = append(parts, down)
	if content.footer != "" {
		parts = append(parts, footerLines...)
	}

	// Subtract frame (border) size so total rendered size equals i.width x i.height
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(i.width - frameW).
		Height(i.height - frameH).
		Render(strings.Join(parts, "\n"))
}

// renderRecord renders the record as three zones
func (i Inspector) renderRecord(width int) inspectorContent {
	if i.record == nil {
		return inspectorContent{body: styles.DimStyle.Render("No record selected")}
	}

	title := i.resource.Title
	if id := i.record.GetID(); id != "" {
		title += " #" + id
	}
	header := styles.TitleStyle.Render(styles.Truncate(title, width))

	kinds := make(map[string]domain.ColumnKind, len(i.resource.Columns))
	labels := make(map[string]string, len(i.resource.Columns))
	for _, col := range i.resource.Columns {
		kinds[col.Path] = col.Kind
		labels[col.Path] = col.Header
	}

	var body []string
	for _, k := range i.record.Keys() {
		label := k
		if l, ok := labels[k]; ok {
			label = l
		}
		value := domain.FormatValue(i.record[k])
		if value == "" {
			value = styles.DimStyle.Render("—")
		} else if kinds[k] == domain.KindSecret && !i.reveal {
			value = strings.Repeat("•", min(len(value), 12))
		}
		body = append(body, styles.SubtitleStyle.Render(label))
		body = append(body, splitLines(ansi.Wrap(value, max(width-2, 1), " ,/"))...)
		body = append(body, "")
	}

	footer := styles.HelpKeyStyle.Render("y") + styles.HelpDescStyle.Render(" copy  ") +
		styles.HelpKeyStyle.Render("J/K") + styles.HelpDescStyle.Render(" scroll")
	if _, hasSecret := findKind(kinds, domain.KindSecret); hasSecret {
		footer += styles.HelpKeyStyle.Render("  v") + styles.HelpDescStyle.Render(" reveal")
	}

	return inspectorContent{
		header: header,
		body:   strings.TrimRight(strings.Join(body, "\n"), "\n"),
		footer: styles.Truncate(footer, width),
	}
}

func findKind(kinds map[string]domain.ColumnKind, kind domain.ColumnKind) (string, bool) {
	for path, k := range kinds {
		if k == kind {
			return path, true
		}
	}
	return "", false
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
