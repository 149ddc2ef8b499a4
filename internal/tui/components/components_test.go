package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/table"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func asnProps(rows []domain.Record) table.Props[domain.Record] {
	return table.Props[domain.Record]{
		Columns: []table.Column[domain.Record]{
			{Header: "ASN", Accessor: "asn", Width: 10},
			{Header: "Org", Accessor: "org", Width: 16},
		},
		Data:        rows,
		CurrentPage: 1,
		TotalPages:  3,
		TotalItems:  25,
		PageSize:    10,
		EmptyText:   "No ASNs found",
		LoadingText: "Loading ASNs...",
	}
}

func TestTableViewRendersHeaderRowsAndPager(t *testing.T) {
	tbl := NewTable("ASNs")
	tbl.SetSize(80, 12)
	tbl.SetProps(asnProps([]domain.Record{
		{"id": "1", "asn": "AS13335", "org": "Cloudflare"},
		{"id": "2", "asn": "AS15169", "org": "Google"},
	}))
	tbl.SetSort("asn", true)

	view := tbl.View()
	assert.Contains(t, view, "ASNs")
	assert.Contains(t, view, "ASN ↓")
	assert.Contains(t, view, "AS13335")
	assert.Contains(t, view, "Google")
	assert.Contains(t, view, "Page 1 of 3")
	assert.Contains(t, view, "25 items")
}

func TestTableViewShowsEmptyAndLoadingText(t *testing.T) {
	tbl := NewTable("ASNs")
	tbl.SetSize(80, 12)
	tbl.SetProps(asnProps(nil))
	assert.Contains(t, tbl.View(), "No ASNs found")

	p := asnProps([]domain.Record{{"id": "1", "asn": "AS1"}})
	p.Loading = true
	tbl.SetProps(p)
	view := tbl.View()
	assert.Contains(t, view, "Loading ASNs...")
	assert.NotContains(t, view, "AS1 ")
}

func TestTableViewRendersSelectionColumn(t *testing.T) {
	selected := map[string]bool{"2": true}
	p := asnProps([]domain.Record{
		{"id": "1", "asn": "AS1"},
		{"id": "2", "asn": "AS2"},
	})
	p.Selection = &table.Selection{
		IsSelected: func(id string) bool { return selected[id] },
		Toggle:     func(string) {},
		SetAll:     func([]string, bool) {},
	}

	tbl := NewTable("ASNs")
	tbl.SetSize(80, 12)
	tbl.SetProps(p)

	view := tbl.View()
	assert.Equal(t, 1, strings.Count(view, "[x]"))
	assert.Equal(t, 2, strings.Count(view, "[ ]")) // header and row 1
}

func TestTableCursorClampsToRows(t *testing.T) {
	tbl := NewTable("ASNs")
	tbl.SetSize(80, 12)
	tbl.SetProps(asnProps([]domain.Record{{"id": "1"}, {"id": "2"}, {"id": "3"}}))

	tbl.MoveDown(10)
	assert.Equal(t, 2, tbl.Cursor())
	row, ok := tbl.SelectedRow()
	require.True(t, ok)
	assert.Equal(t, "3", row.GetID())

	tbl.MoveUp(10)
	assert.Equal(t, 0, tbl.Cursor())

	// Shrinking the page pulls the cursor back in range
	tbl.Bottom()
	tbl.SetProps(asnProps([]domain.Record{{"id": "1"}}))
	assert.Equal(t, 0, tbl.Cursor())
}

func TestTableSelectedRowHiddenWhileLoading(t *testing.T) {
	p := asnProps([]domain.Record{{"id": "1"}})
	p.Loading = true
	tbl := NewTable("ASNs")
	tbl.SetProps(p)

	_, ok := tbl.SelectedRow()
	assert.False(t, ok)
}

func TestSortModalOffersServerOrderFirst(t *testing.T) {
	m := NewSortModal()
	m.Show([]SortOption{{Label: "ASN", Accessor: "asn"}}, "", SortAsc)
	require.True(t, m.IsVisible())

	handled, sel := m.HandleKey("enter")
	assert.True(t, handled)
	require.NotNil(t, sel)
	assert.Equal(t, "", sel.Option.Accessor)
	assert.False(t, m.IsVisible())
}

func TestSortModalTogglesDirectionOnActiveColumn(t *testing.T) {
	opts := []SortOption{{Label: "ASN", Accessor: "asn"}, {Label: "Org", Accessor: "org"}}

	m := NewSortModal()
	m.Show(opts, "asn", SortAsc)
	_, sel := m.HandleKey("enter")
	require.NotNil(t, sel)
	assert.Equal(t, "asn", sel.Option.Accessor)
	assert.True(t, sel.Desc())

	m.Show(opts, "asn", SortDesc)
	_, sel = m.HandleKey("enter")
	require.NotNil(t, sel)
	assert.False(t, sel.Desc())

	m.Show(opts, "asn", SortAsc)
	m.HandleKey("j")
	_, sel = m.HandleKey("enter")
	require.NotNil(t, sel)
	assert.Equal(t, "org", sel.Option.Accessor)
	assert.False(t, sel.Desc())
}

func TestSortModalConsumesKeysAndCloses(t *testing.T) {
	m := NewSortModal()
	handled, _ := m.HandleKey("j")
	assert.False(t, handled, "hidden modal ignores keys")

	m.Show(nil, "", SortAsc)
	handled, sel := m.HandleKey("x")
	assert.True(t, handled)
	assert.Nil(t, sel)

	_, sel = m.HandleKey("esc")
	assert.Nil(t, sel)
	assert.False(t, m.IsVisible())
}

func prefixRank(values []string, query string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, query) {
			out = append(out, v)
		}
	}
	return out
}

func TestPickerModalNarrowsByQuery(t *testing.T) {
	m := NewPickerModal()
	m.Show("program", "Program", []PickerOption{
		{Value: "acme"}, {Value: "globex"}, {Value: "acmecorp"},
	}, "", prefixRank)

	m, _, _ = m.Update(keyMsg("g"))
	m, _, chosen := m.Update(keyMsg("enter"))
	require.NotNil(t, chosen)
	assert.Equal(t, "globex", chosen.Value)
	assert.False(t, m.IsVisible())
	assert.Equal(t, "program", m.Kind())
}

func TestPickerModalNavigatesWithoutQuery(t *testing.T) {
	m := NewPickerModal()
	m.Show("pagesize", "Page size", []PickerOption{
		{Value: "10"}, {Value: "25"}, {Value: "50"},
	}, "25", nil)

	m, _, _ = m.Update(keyMsg("j"))
	m, _, chosen := m.Update(keyMsg("enter"))
	require.NotNil(t, chosen)
	assert.Equal(t, "50", chosen.Value)
}

func TestPickerModalEscapeChoosesNothing(t *testing.T) {
	m := NewPickerModal()
	m.Show("category", "Category", []PickerOption{{Value: "all"}}, "all", nil)

	m, _, chosen := m.Update(keyMsg("esc"))
	assert.Nil(t, chosen)
	assert.False(t, m.IsVisible())
}

func TestConfirmModal(t *testing.T) {
	m := NewConfirmModal()
	handled, _ := m.HandleKey("y")
	assert.False(t, handled)

	m.Show("Delete ASN #1?", "This cannot be undone.")
	assert.Contains(t, m.View(), "Delete ASN #1?")

	handled, confirmed := m.HandleKey("z")
	assert.True(t, handled)
	assert.False(t, confirmed)
	assert.True(t, m.IsVisible())

	handled, confirmed = m.HandleKey("y")
	assert.True(t, handled)
	assert.True(t, confirmed)
	assert.False(t, m.IsVisible())
}

func TestFormModalPrefillsAndSubmits(t *testing.T) {
	cols := []domain.Column{
		{Header: "Name", Path: "name"},
		{Header: "Active", Path: "active", Kind: domain.KindBool},
	}

	m := NewFormModal()
	m.Show("Edit program #7", "7", cols, domain.Record{"id": "7", "name": "acme", "active": 1})
	assert.Equal(t, "7", m.EditingID())
	assert.Equal(t, map[string]string{"name": "acme", "active": "yes"}, m.Values())

	m, _, submitted := m.Update(keyMsg("enter"))
	assert.False(t, submitted, "enter on a middle field moves on")
	m, _, submitted = m.Update(keyMsg("enter"))
	assert.True(t, submitted)
}

func TestSidebarStartsOnRunEntryAndSkipsHeadings(t *testing.T) {
	s := NewSidebar()
	s.SetSize(30, 20)
	s.SetFocused(true)
	s.SetResources([]domain.Resource{
		{Key: "asns", Title: "ASNs", Group: "Shared"},
		{Key: "programs", Title: "Programs", Group: "Shared"},
	}, []string{"Shared"})

	assert.Equal(t, RunEntryKey, s.SelectedKey())

	s, _ = s.Update(keyMsg("j"))
	assert.Equal(t, "asns", s.SelectedKey(), "the group heading is skipped")

	require.True(t, s.Select("programs"))
	assert.Equal(t, "programs", s.SelectedKey())
}

func TestRunViewActionsFromKeys(t *testing.T) {
	v := NewRunView()
	v.SetPresets([]domain.RunPreset{
		{Key: "subs", Title: "Subdomains", Mode: "sub", NeedsTarget: true},
		{Key: "ips", Title: "IPs", Mode: "ip"},
	})
	v.SetFocused(true)
	v.SetSize(80, 30)

	p, ok := v.Preset()
	require.True(t, ok)
	assert.Equal(t, "subs", p.Key)

	v, _, action := v.Update(keyMsg("l"))
	assert.Equal(t, RunInputsChanged, action)
	p, _ = v.Preset()
	assert.Equal(t, "ips", p.Key)

	_, _, action = v.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, RunStart, action)

	_, _, action = v.Update(keyMsg("esc"))
	assert.Equal(t, RunLeave, action)
}

func TestInputModalSubmitHides(t *testing.T) {
	m := NewInputModal()
	m.Show("Search ASNs", "", "search term", "")

	m, _, ev := m.Update(keyMsg("cloud"))
	assert.Equal(t, InputNone, ev, "only live modals report edits")

	m, _, ev = m.Update(keyMsg("enter"))
	assert.Equal(t, InputSubmitted, ev)
	assert.Equal(t, "cloud", m.Value())
	assert.False(t, m.IsVisible())
}

func TestInputModalLiveReportsEditsAndKeepsInitial(t *testing.T) {
	m := NewInputModal()
	m.ShowLive("Filter this page", "acme", "text", "")
	require.True(t, m.Live())

	m, _, ev := m.Update(keyMsg("x"))
	assert.Equal(t, InputChanged, ev)
	assert.Equal(t, "acmex", m.Value())

	m, _, ev = m.Update(keyMsg("esc"))
	assert.Equal(t, InputCancelled, ev)
	assert.Equal(t, "acme", m.Initial())
	assert.False(t, m.IsVisible())
}
