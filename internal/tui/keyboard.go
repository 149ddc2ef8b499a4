package tui

import (
	"encoding/json"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/table"
	"github.com/mmcdole/recon/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.State == StateHelp {
		m.State = StateBrowsing
		return m, nil
	}

	// Route to active modal if any
	if handled, newModel, cmd := m.routeToModal(msg); handled {
		return newModel, cmd
	}

	// The run view owns the keyboard while one of its inputs has focus
	if m.Focus == PaneContent && m.ActiveKey == components.RunEntryKey {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.Run.Typing() || !key.Matches(msg, Keys.Quit, Keys.Help) {
			return m.updateRunView(msg)
		}
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.RunView):
		cmd := m.activate(components.RunEntryKey)
		m.setFocus(PaneContent)
		return m, cmd
	}

	if m.Focus == PaneSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleTableKey(msg)
}

// routeToModal forwards keys to the visible modal. It reports whether a
// modal consumed the key.
func (m Model) routeToModal(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	if m.ConfirmModal.IsVisible() {
		handled, confirmed := m.ConfirmModal.HandleKey(msg.String())
		if !handled {
			return true, m, nil
		}
		rows := m.pendingDelete
		m.pendingDelete = nil
		if !confirmed || len(rows) == 0 {
			return true, m, nil
		}
		model, cmd := m.deleteRows(rows)
		return true, model.(Model), cmd
	}

	if m.FormModal.IsVisible() {
		var cmd tea.Cmd
		var submitted bool
		m.FormModal, cmd, submitted = m.FormModal.Update(msg)
		if submitted {
			model, submitCmd := m.submitForm()
			return true, model.(Model), tea.Batch(cmd, submitCmd)
		}
		return true, m, cmd
	}

	if m.InputModal.IsVisible() {
		var cmd tea.Cmd
		var ev components.InputEvent
		m.InputModal, cmd, ev = m.InputModal.Update(msg)
		switch ev {
		case components.InputSubmitted, components.InputChanged:
			return true, m, tea.Batch(cmd, m.applyInput(m.InputModal.Value()))
		case components.InputCancelled:
			if m.InputModal.Live() {
				return true, m, m.applyInput(m.InputModal.Initial())
			}
		}
		return true, m, cmd
	}

	if m.Picker.IsVisible() {
		var cmd tea.Cmd
		var chosen *components.PickerOption
		m.Picker, cmd, chosen = m.Picker.Update(msg)
		if chosen != nil {
			return true, m, tea.Batch(cmd, m.applyPick(m.Picker.Kind(), *chosen))
		}
		return true, m, cmd
	}

	if m.SortModal.IsVisible() {
		handled, selection := m.SortModal.HandleKey(msg.String())
		if handled {
			if selection != nil {
				if v := m.activeView(); v != nil {
					v.SetSort(selection.Option.Accessor, selection.Desc())
					m.updateInspector()
				}
			}
			return true, m, nil
		}
	}

	return false, m, nil
}

// handleSidebarKey handles keys while the resource list has focus
func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Enter, Keys.Focus):
		m.setFocus(PaneContent)
		return m, nil

	case key.Matches(msg, Keys.Up, Keys.Down, Keys.Home, Keys.End):
		before := m.Sidebar.SelectedKey()
		var cmd tea.Cmd
		m.Sidebar, cmd = m.Sidebar.Update(msg)
		if after := m.Sidebar.SelectedKey(); after != before {
			return m, tea.Batch(cmd, m.activate(after))
		}
		return m, cmd
	}
	return m, nil
}

// handleTableKey handles keys while a resource table has focus
func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil {
		return m, nil
	}
	props := v.Table.Props()
	row, hasRow := v.Table.SelectedRow()
	half := max(v.Table.VisibleRows()/2, 1)

	switch {
	case key.Matches(msg, Keys.Back, Keys.Escape):
		if key.Matches(msg, Keys.Escape) && v.Filter != "" {
			v.SetFilter("")
			return m, nil
		}
		m.setFocus(PaneSidebar)
		return m, nil

	case key.Matches(msg, Keys.Focus):
		m.setFocus(PaneSidebar)
		return m, nil

	case key.Matches(msg, Keys.Up):
		v.Table.MoveUp(1)
	case key.Matches(msg, Keys.Down):
		v.Table.MoveDown(1)
	case key.Matches(msg, Keys.HalfUp):
		v.Table.MoveUp(half)
	case key.Matches(msg, Keys.HalfDown):
		v.Table.MoveDown(half)
	case key.Matches(msg, Keys.Home):
		v.Table.Top()
	case key.Matches(msg, Keys.End):
		v.Table.Bottom()

	case key.Matches(msg, Keys.PrevPage):
		if !props.CanPrev() {
			return m, nil
		}
		props.Prev()
		v.Table.Top()
		return m, v.Sync()

	case key.Matches(msg, Keys.NextPage):
		if !props.CanNext() {
			return m, nil
		}
		props.Next()
		v.Table.Top()
		return m, v.Sync()

	case key.Matches(msg, Keys.Search):
		m.inputFor = inputSearch
		m.InputModal.Show("Search "+v.Res.Title, v.Params.Search, "search term", "enter to search · empty clears")
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.inputFor = inputFilter
		m.InputModal.ShowLive("Filter this page", v.Filter, "text", "matches loaded rows only · esc restores")
		return m, nil

	case key.Matches(msg, Keys.Category):
		if !v.Res.HasCategories() {
			return m.setStatus(v.Res.Title+" has no categories", true)
		}
		opts := make([]components.PickerOption, 0, len(v.Res.Categories)+1)
		opts = append(opts, components.PickerOption{Value: domain.CategoryAll, Label: "All"})
		for _, c := range v.Res.Categories {
			opts = append(opts, components.PickerOption{Value: c})
		}
		active := v.Params.Category
		if active == "" {
			active = domain.CategoryAll
		}
		m.Picker.Show(pickCategory, "Category", opts, active, nil)
		return m, nil

	case key.Matches(msg, Keys.Sort):
		m.SortModal.Show(sortOptions(v.Res), v.SortBy, sortDirection(v.SortDesc))
		return m, nil

	case key.Matches(msg, Keys.PageSize):
		opts := make([]components.PickerOption, len(table.PageSizes))
		for i, n := range table.PageSizes {
			opts[i] = components.PickerOption{Value: strconv.Itoa(n), Label: strconv.Itoa(n) + " per page"}
		}
		m.Picker.Show(pickPageSize, "Page size", opts, strconv.Itoa(v.Params.PageSize), nil)
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		v.Params = v.Params.Refreshed()
		return m, v.Sync()

	case key.Matches(msg, Keys.New):
		if v.ReadOnly() {
			return m.setStatus(v.Res.Title+" is read-only", true)
		}
		m.FormModal.Show("New "+v.Res.Title, "", v.Res.EditableColumns(), nil)
		return m, nil

	case key.Matches(msg, Keys.Edit):
		if hasRow {
			props.Actions.Edit(row)
		}
	case key.Matches(msg, Keys.Delete):
		if hasRow {
			props.Actions.Delete(row)
		}
	case key.Matches(msg, Keys.Copy):
		if hasRow {
			props.Actions.Copy(row)
		}
	case key.Matches(msg, Keys.Enter):
		if hasRow {
			props.Actions.View(row)
		}

	case key.Matches(msg, Keys.DeleteMany):
		rows := v.Selected()
		if len(rows) == 0 {
			return m.setStatus("Nothing selected", true)
		}
		if v.ReadOnly() {
			return m.setStatus(v.Res.Title+" is read-only", true)
		}
		rows, _ = settledRows(rows)
		if len(rows) == 0 {
			return m.setStatus(msgRowPending, true)
		}
		m.pendingDelete = rows
		m.ConfirmModal.Show("Delete "+strconv.Itoa(len(rows))+" rows?", "This cannot be undone.")
		return m, nil

	case key.Matches(msg, Keys.Select):
		if hasRow {
			props.ToggleRow(row)
			v.refreshTable()
		}
	case key.Matches(msg, Keys.SelectAll):
		props.ToggleAll()
		v.refreshTable()

	case key.Matches(msg, Keys.Inspector):
		m.ShowInspector = !m.ShowInspector
		m.updateLayout()
	case key.Matches(msg, Keys.ScrollDown):
		m.Inspector.ScrollDown(1)
	case key.Matches(msg, Keys.ScrollUp):
		m.Inspector.ScrollUp(1)
	case key.Matches(msg, Keys.Reveal):
		m.Inspector.ToggleReveal()
	}

	m.updateInspector()
	return m.handleRowAction(v)
}

// handleRowAction performs the row action requested through the surface
func (m Model) handleRowAction(v *ResourceView) (tea.Model, tea.Cmd) {
	req := v.TakeAction()
	switch req.kind {
	case actionView:
		m.ShowInspector = true
		m.updateLayout()
		m.Inspector.SetRecord(v.Res, req.row)

	case actionEdit:
		if v.ReadOnly() {
			return m.setStatus(v.Res.Title+" is read-only", true)
		}
		if table.IsTempID(req.row.GetID()) {
			return m.setStatus(msgRowPending, true)
		}
		m.FormModal.Show("Edit "+v.Res.Title+" #"+req.row.GetID(), req.row.GetID(), v.Res.EditableColumns(), req.row)

	case actionDelete:
		if v.ReadOnly() {
			return m.setStatus(v.Res.Title+" is read-only", true)
		}
		if table.IsTempID(req.row.GetID()) {
			return m.setStatus(msgRowPending, true)
		}
		m.pendingDelete = []domain.Record{req.row}
		m.ConfirmModal.Show("Delete "+v.Res.Title+" #"+req.row.GetID()+"?", "This cannot be undone.")

	case actionCopy:
		return m, CopyCmd(copyText(v.Res, req.row), v.Res.Title+" #"+req.row.GetID())
	}
	return m, nil
}

// applyInput applies the input modal's value
func (m *Model) applyInput(value string) tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	switch m.inputFor {
	case inputSearch:
		v.Params = v.Params.WithSearch(value)
		v.Table.Top()
		return v.Sync()
	case inputFilter:
		v.SetFilter(value)
		m.updateInspector()
	}
	return nil
}

// applyPick applies a picker choice
func (m *Model) applyPick(kind string, opt components.PickerOption) tea.Cmd {
	switch kind {
	case pickCategory:
		if v := m.activeView(); v != nil {
			v.Params = v.Params.WithCategory(opt.Value)
			v.Table.Top()
			return v.Sync()
		}

	case pickPageSize:
		v := m.activeView()
		n, err := strconv.Atoi(opt.Value)
		if v == nil || err != nil {
			return nil
		}
		props := v.Table.Props()
		props.SelectPageSize(n)
		if size := v.TakePageSize(); size > 0 {
			return SetPageSizeCmd(m.Prefs, size)
		}

	case pickPreset:
		m.Run.SelectPreset(opt.Value)
		m.updateRunPreview()

	case pickProgram:
		m.Run.SetProgram(opt.Value)
		m.updateRunPreview()
	}
	return nil
}

// updateRunView forwards a key to the run view and acts on its request
func (m Model) updateRunView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var action components.RunAction
	m.Run, cmd, action = m.Run.Update(msg)

	switch action {
	case components.RunInputsChanged:
		m.updateRunPreview()

	case components.RunStart:
		model, startCmd := m.startRun()
		return model, tea.Batch(cmd, startCmd)

	case components.RunCancel:
		model, cancelCmd := m.cancelRun()
		return model, tea.Batch(cmd, cancelCmd)

	case components.RunPickPreset:
		presets := m.RunSvc.Presets()
		opts := make([]components.PickerOption, len(presets))
		for i, p := range presets {
			opts[i] = components.PickerOption{Value: p.Key, Label: p.Title, Hint: p.Mode}
		}
		active := ""
		if p, ok := m.Run.Preset(); ok {
			active = p.Key
		}
		m.Picker.Show(pickPreset, "Preset", opts, active, nil)

	case components.RunPickProgram:
		m.Picker.Show(pickProgram, "Program", programOptions(m.programs), m.Run.Program(), service.RankPrograms)
		return m, tea.Batch(cmd, LoadProgramsCmd(m.RunSvc, len(m.programs) > 0))

	case components.RunCopyOutput:
		if sess := m.RunSvc.Current(); sess != nil {
			return m, tea.Batch(cmd, CopyCmd(stream.Plain(sess.Output()), "output"))
		}

	case components.RunClearOutput:
		m.Run.ClearOutput()

	case components.RunRerun:
		if rec, ok := m.Run.SelectedRun(); ok {
			m.Run.SetCommand(rec.Command)
			m.Run.Focus(components.FieldCommand)
		}

	case components.RunLeave:
		m.setFocus(PaneSidebar)
	}
	return m, cmd
}

// copyText is what the copy action puts on the clipboard: the resource's
// copy field, or the whole record as JSON
func copyText(res domain.Resource, row domain.Record) string {
	if res.CopyField != "" {
		if s := row.Text(res.CopyField); s != "" {
			return s
		}
	}
	b, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return domain.FormatValue(row)
	}
	return string(b)
}

// sortOptions lists the sortable columns of res, or every column when none
// is flagged
func sortOptions(res domain.Resource) []components.SortOption {
	var opts []components.SortOption
	for _, c := range res.Columns {
		if c.Sortable {
			opts = append(opts, components.SortOption{Label: c.Header, Accessor: c.Path})
		}
	}
	if len(opts) > 0 {
		return opts
	}
	for _, c := range res.Columns {
		opts = append(opts, components.SortOption{Label: c.Header, Accessor: c.Path})
	}
	return opts
}

func sortDirection(desc bool) components.SortDirection {
	if desc {
		return components.SortDesc
	}
	return components.SortAsc
}
