package tui

// Layout constants
const (
	ChromeHeight     = 1 // footer
	SidebarPercent   = 22
	MinSidebarWidth  = 18
	MaxSidebarWidth  = 32
	InspectorPercent = 35
	MinColumnWidth   = 15
)

// paneLayout holds calculated pane widths for the View
type paneLayout struct {
	sidebarWidth   int
	contentWidth   int
	inspectorWidth int // 0 if not shown
}

// calculateLayout computes pane widths from the window width and inspector
// visibility
func (m Model) calculateLayout(availableWidth int) paneLayout {
	layout := paneLayout{
		sidebarWidth: min(max(availableWidth*SidebarPercent/100, MinSidebarWidth), MaxSidebarWidth),
	}
	rest := max(availableWidth-layout.sidebarWidth, MinColumnWidth)

	if m.ShowInspector && m.activeView() != nil {
		layout.inspectorWidth = max(rest*InspectorPercent/100, MinColumnWidth)
		layout.contentWidth = max(rest-layout.inspectorWidth, MinColumnWidth)
	} else {
		layout.contentWidth = rest
	}
	return layout
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	contentHeight := m.Height - ChromeHeight
	layout := m.calculateLayout(m.Width)

	m.Sidebar.SetSize(layout.sidebarWidth, contentHeight)
	m.Run.SetSize(layout.contentWidth, contentHeight)
	for _, v := range m.Views {
		v.Table.SetSize(layout.contentWidth, contentHeight)
	}
	if layout.inspectorWidth > 0 {
		m.Inspector.SetSize(layout.inspectorWidth, contentHeight)
	}
}

// sizeView sizes a newly created view to the current layout
func (m Model) sizeView(v *ResourceView) {
	if m.Width == 0 || m.Height == 0 {
		return
	}
	layout := m.calculateLayout(m.Width)
	v.Table.SetSize(layout.contentWidth, m.Height-ChromeHeight)
}
