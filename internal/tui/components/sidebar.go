package components

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// RunEntryKey identifies the synthetic run view entry at the top of the sidebar
const RunEntryKey = "__run__"

// LoadStatus represents the fetch status of a resource view
type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusError
)

// Spinner frames for loading animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerFrame returns the frame for the given tick
func SpinnerFrame(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}

// ResourceItem implements list.Item for sidebar entries
type ResourceItem struct {
	Key    string
	Label  string
	Group  string
	Header bool // group heading, not selectable
	Status LoadStatus
	Total  int
	Frame  int
}

func (i ResourceItem) FilterValue() string { return i.Label }

func (i ResourceItem) Title() string {
	if i.Header {
		return styles.DimStyle.Render(i.Label)
	}
	switch i.Status {
	case StatusLoading:
		return SpinnerFrame(i.Frame) + " " + i.Label
	case StatusLoaded:
		return "  " + i.Label
	case StatusError:
		return "✗ " + i.Label
	default:
		return "  " + i.Label
	}
}

func (i ResourceItem) Description() string { return i.Group }

// Border overhead for the sidebar panel
const BorderSize = 2

// Sidebar lists the run entry and every catalog resource grouped
type Sidebar struct {
	list         list.Model
	focused      bool
	width        int
	height       int
	resources    []domain.Resource
	groups       []string
	statuses     map[string]LoadStatus
	spinnerFrame int
}

// NewSidebar creates a new sidebar component
func NewSidebar() Sidebar {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(styles.White).
		Background(styles.SlateLight).
		Padding(0, 1)
	delegate.Styles.NormalTitle = lipgloss.NewStyle().
		Foreground(styles.LightGray).
		Padding(0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Recon"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Padding(0, 1)

	return Sidebar{
		list:     l,
		statuses: make(map[string]LoadStatus),
	}
}

// SetResources updates the resources in the sidebar. groups fixes the
// heading order.
func (s *Sidebar) SetResources(resources []domain.Resource, groups []string) {
	s.resources = resources
	s.groups = groups
	s.refreshItems()
	s.skipHeader(1)
}

// SetStatus updates the load status of one resource
func (s *Sidebar) SetStatus(key string, status LoadStatus) {
	if s.statuses[key] == status {
		return
	}
	s.statuses[key] = status
	s.refreshItems()
}

// SetSpinnerFrame updates the spinner animation frame
func (s *Sidebar) SetSpinnerFrame(frame int) {
	s.spinnerFrame = frame
	for _, st := range s.statuses {
		if st == StatusLoading {
			s.refreshItems()
			return
		}
	}
}

func (s *Sidebar) refreshItems() {
	items := []list.Item{ResourceItem{Key: RunEntryKey, Label: "▶ Run", Status: StatusIdle}}
	for _, g := range s.groups {
		items = append(items, ResourceItem{Label: g, Group: g, Header: true})
		for _, res := range s.resources {
			if res.Group != g {
				continue
			}
			items = append(items, ResourceItem{
				Key:    res.Key,
				Label:  res.Title,
				Group:  g,
				Status: s.statuses[res.Key],
				Frame:  s.spinnerFrame,
			})
		}
	}
	s.list.SetItems(items)
}

// skipHeader moves off a heading in direction dir (+1 down, -1 up)
func (s *Sidebar) skipHeader(dir int) {
	items := s.list.Items()
	idx := s.list.Index()
	for idx >= 0 && idx < len(items) {
		if item, ok := items[idx].(ResourceItem); ok && !item.Header {
			s.list.Select(idx)
			return
		}
		idx += dir
	}
}

// SetSize updates the component dimensions
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.list.SetSize(width-BorderSize, height-BorderSize)
}

// SetFocused sets the focus state
func (s *Sidebar) SetFocused(focused bool) {
	s.focused = focused
}

// IsFocused returns the focus state
func (s Sidebar) IsFocused() bool {
	return s.focused
}

// SelectedKey returns the key of the highlighted entry
func (s Sidebar) SelectedKey() string {
	item, ok := s.list.SelectedItem().(ResourceItem)
	if !ok || item.Header {
		return ""
	}
	return item.Key
}

// Select highlights the entry with key
func (s *Sidebar) Select(key string) bool {
	for i, it := range s.list.Items() {
		if item, ok := it.(ResourceItem); ok && !item.Header && item.Key == key {
			s.list.Select(i)
			return true
		}
	}
	return false
}

// Init initializes the component
func (s Sidebar) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (s Sidebar) Update(msg tea.Msg) (Sidebar, tea.Cmd) {
	if !s.focused {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			s.list.CursorDown()
			s.skipHeader(1)
		case "k", "up":
			s.list.CursorUp()
			s.skipHeader(-1)
			s.skipHeader(1)
		case "g":
			s.list.Select(0)
		case "G":
			s.list.Select(len(s.list.Items()) - 1)
			s.skipHeader(-1)
		}
	}

	return s, nil
}

// View renders the component
func (s Sidebar) View() string {
	style := styles.InactiveBorder
	if s.focused {
		style = styles.ActiveBorder
	}

	// Subtract frame (border) size so total rendered size equals s.width x s.height
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(s.width - frameW).
		Height(s.height - frameH).
		Render(s.list.View())
}
