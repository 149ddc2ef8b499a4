package tui

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/settings"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/table"
	"github.com/mmcdole/recon/internal/tui/components"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
)

// Pane identifies which half of the screen has focus
type Pane int

const (
	PaneSidebar Pane = iota
	PaneContent
)

// Picker kinds
const (
	pickCategory = "category"
	pickPageSize = "pagesize"
	pickPreset   = "preset"
	pickProgram  = "program"
)

// inputPurpose says what the input modal is collecting
type inputPurpose int

const (
	inputSearch inputPurpose = iota
	inputFilter
)

// Status display durations
const (
	statusTimeout    = 3 * time.Second
	errStatusTimeout = 6 * time.Second
	autoClearDelay   = 5 * time.Second
)

// msgRowPending is shown when acting on a row whose create is in flight.
const msgRowPending = "Row is still being created"

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	ResourceSvc *service.ResourceService
	RunSvc      *service.RunService
	Prefs       *settings.Provider
	logger      *slog.Logger
	autoClear   bool

	// UI Components
	Sidebar      components.Sidebar
	Run          components.RunView
	Inspector    components.Inspector
	SortModal    components.SortModal
	Picker       components.PickerModal
	InputModal   components.InputModal
	FormModal    components.FormModal
	ConfirmModal components.ConfirmModal

	// Resource views by key, created on first visit
	Views     map[string]*ResourceView
	ActiveKey string
	Focus     Pane

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg     string
	StatusIsErr   bool
	SpinnerFrame  int
	ShowInspector bool

	inputFor      inputPurpose
	pendingDelete []domain.Record
	programs      []string
	observer      *PageSizeObserver
	unsubscribe   func()
}

// NewModel creates a new application model
func NewModel(
	resourceSvc *service.ResourceService,
	runSvc *service.RunService,
	prefs *settings.Provider,
	autoClear bool,
	logger *slog.Logger,
) Model {
	if logger == nil {
		logger = slog.Default()
	}

	obs := NewPageSizeObserver()
	unsubscribe := prefs.Subscribe(obs.OnChange)

	sidebar := components.NewSidebar()
	sidebar.SetResources(resourceSvc.Resources(), resourceSvc.Catalog().Groups())
	sidebar.SetFocused(true)

	run := components.NewRunView()
	run.SetPresets(runSvc.Presets())

	m := Model{
		State:        StateBrowsing,
		ResourceSvc:  resourceSvc,
		RunSvc:       runSvc,
		Prefs:        prefs,
		logger:       logger,
		autoClear:    autoClear,
		Sidebar:      sidebar,
		Run:          run,
		Inspector:    components.NewInspector(),
		SortModal:    components.NewSortModal(),
		Picker:       components.NewPickerModal(),
		InputModal:   components.NewInputModal(),
		FormModal:    components.NewFormModal(),
		ConfirmModal: components.NewConfirmModal(),
		Views:        make(map[string]*ResourceView),
		Focus:        PaneSidebar,
		observer:     obs,
		unsubscribe:  unsubscribe,
	}

	// The first resource opens at startup; Init issues its fetch
	for _, res := range resourceSvc.Resources() {
		if _, err := m.view(res.Key); err != nil {
			logger.Warn("resource unavailable", "resource", res.Key, "error", err)
			continue
		}
		m.ActiveKey = res.Key
		m.Sidebar.Select(res.Key)
		break
	}
	if m.ActiveKey == "" {
		m.ActiveKey = components.RunEntryKey
	}
	return m
}

// Close releases the settings subscription. Call it after the program exits.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		TickCmd(100*time.Millisecond),
		LoadHistoryCmd(m.RunSvc),
		m.observer.Wait(),
		m.initialSync(),
	)
}

// initialSync issues the first fetch of the view selected at startup
func (m Model) initialSync() tea.Cmd {
	v := m.activeView()
	if v == nil {
		return nil
	}
	cmd := v.Sync()
	m.Sidebar.SetStatus(v.Res.Key, v.Status())
	return cmd
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		m.Sidebar.SetSpinnerFrame(m.SpinnerFrame)
		return m, TickCmd(100 * time.Millisecond)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Run, cmd, _ = m.Run.Update(msg)
		return m, cmd

	case PageLoadedMsg:
		v, ok := m.Views[msg.Key]
		if !ok {
			return m, nil
		}
		err := v.Resolve(msg.Outcome)
		m.Sidebar.SetStatus(v.Res.Key, v.Status())
		m.updateInspector()
		if err != nil {
			return m.setStatus(err.Error(), true)
		}
		return m, nil

	case MutationSettledMsg:
		return m.handleSettled(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)

	case ProgramsLoadedMsg:
		m.programs = msg.Names
		if m.Picker.IsVisible() && m.Picker.Kind() == pickProgram {
			m.Picker.SetOptions(programOptions(msg.Names))
		}
		return m, nil

	case HistoryLoadedMsg:
		m.Run.SetHistory(msg.Runs)
		return m, nil

	case CopiedMsg:
		return m.setStatus("Copied "+msg.What+" to clipboard", false)

	case PageSizeChangedMsg:
		for _, v := range m.Views {
			v.Params = v.Params.WithPageSize(msg.Size)
		}
		cmds := []tea.Cmd{m.observer.Wait()}
		if v := m.activeView(); v != nil {
			cmds = append(cmds, v.Sync())
		}
		return m, tea.Batch(cmds...)

	case AutoClearMsg:
		if m.RunSvc.IsCurrent(msg.SessionID) && !m.Run.Running() {
			m.Run.ClearOutput()
		}
		return m, nil

	case ErrMsg:
		m.logger.Error("command failed", "context", msg.Context, "error", msg.Err)
		return m.setStatus(msg.Error(), true)

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

// setStatus shows a transient message in the footer
func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	delay := statusTimeout
	if isErr {
		delay = errStatusTimeout
	}
	return m, ClearStatusCmd(delay)
}

// activeView returns the view of the active resource, or nil on the run view
func (m Model) activeView() *ResourceView {
	if m.ActiveKey == "" || m.ActiveKey == components.RunEntryKey {
		return nil
	}
	return m.Views[m.ActiveKey]
}

// activate switches the content pane to key and issues its fetch
func (m *Model) activate(key string) tea.Cmd {
	if key == "" {
		return nil
	}
	m.ActiveKey = key
	m.Sidebar.Select(key)
	m.Inspector.Clear()
	m.updateLayout()

	if key == components.RunEntryKey {
		m.updateRunPreview()
		return LoadHistoryCmd(m.RunSvc)
	}

	v, err := m.view(key)
	if err != nil {
		return func() tea.Msg { return ErrMsg{Err: err, Context: "opening " + key} }
	}
	cmd := v.Sync()
	m.Sidebar.SetStatus(key, v.Status())
	m.updateInspector()
	return cmd
}

// view returns the view for key, creating it on first use
func (m Model) view(key string) (*ResourceView, error) {
	if v, ok := m.Views[key]; ok {
		return v, nil
	}
	res, err := m.ResourceSvc.Catalog().Resource(key)
	if err != nil {
		return nil, err
	}
	v, err := NewResourceView(res, m.ResourceSvc, m.Prefs.PageSize(), m.logger)
	if err != nil {
		return nil, err
	}
	m.Views[key] = v
	m.sizeView(v)
	return v, nil
}

// setFocus moves focus between the sidebar and the content pane
func (m *Model) setFocus(p Pane) {
	m.Focus = p
	m.Sidebar.SetFocused(p == PaneSidebar)
	onRun := m.ActiveKey == components.RunEntryKey
	m.Run.SetFocused(p == PaneContent && onRun)
	for key, v := range m.Views {
		v.Table.SetFocused(p == PaneContent && key == m.ActiveKey)
	}
}

// updateInspector points the inspector at the row under the cursor
func (m *Model) updateInspector() {
	v := m.activeView()
	if v == nil {
		m.Inspector.Clear()
		return
	}
	row, ok := v.Table.SelectedRow()
	if !ok {
		m.Inspector.Clear()
		return
	}
	m.Inspector.SetRecord(v.Res, row)
}

// mutationCallbacks logs the outcome of an optimistic mutation
func (m Model) mutationCallbacks(op string, res domain.Resource) table.Callbacks[domain.Record] {
	return table.Callbacks[domain.Record]{
		OnSuccess: func(row domain.Record) {
			m.logger.Debug("mutation confirmed", "op", op, "resource", res.Key, "id", row.GetID())
		},
		OnError: func(message string) {
			m.logger.Warn("mutation rolled back", "op", op, "resource", res.Key, "error", message)
		},
	}
}

// submitForm validates the form and applies it optimistically
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil || v.ReadOnly() {
		m.FormModal.Hide()
		return m, nil
	}
	rec := service.FormRecord(v.Res, m.FormModal.Values())
	if err := service.Validate(v.Res, rec); err != nil {
		m.FormModal.SetError(err.Error())
		return m, nil
	}

	coll := v.Collection()
	var pending table.Pending[domain.Record]
	if id := m.FormModal.EditingID(); id != "" {
		if table.IsTempID(id) {
			m.FormModal.Hide()
			return m.setStatus(msgRowPending, true)
		}
		p, err := coll.Edit(rec.WithID(id), m.mutationCallbacks("update", v.Res))
		if err != nil {
			m.FormModal.SetError(err.Error())
			return m, nil
		}
		pending = p
	} else {
		pending = coll.Add(rec, m.mutationCallbacks("create", v.Res))
		v.Table.Top()
	}
	m.FormModal.Hide()
	v.refreshTable()
	m.updateInspector()
	return m, MutateCmd(v.Res.Key, pending, v.Mutator())
}

// deleteRows removes rows optimistically and sends the deletes
func (m Model) deleteRows(rows []domain.Record) (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil || v.ReadOnly() {
		return m, nil
	}
	rows, skipped := settledRows(rows)
	coll := v.Collection()
	var cmds []tea.Cmd
	for _, row := range rows {
		p, err := coll.Delete(row, m.mutationCallbacks("delete", v.Res))
		if err != nil {
			m.logger.Warn("delete skipped", "resource", v.Res.Key, "error", err)
			continue
		}
		cmds = append(cmds, MutateCmd(v.Res.Key, p, v.Mutator()))
	}
	v.ClearSelection()
	v.refreshTable()
	m.updateInspector()
	if skipped > 0 {
		model, status := m.setStatus(msgRowPending, true)
		return model, tea.Batch(append(cmds, status)...)
	}
	return m, tea.Batch(cmds...)
}

// settledRows drops rows whose create has not been confirmed yet.
func settledRows(rows []domain.Record) ([]domain.Record, int) {
	kept := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		if !table.IsTempID(row.GetID()) {
			kept = append(kept, row)
		}
	}
	return kept, len(rows) - len(kept)
}

// handleSettled reconciles a mutation with the server's answer
func (m Model) handleSettled(msg MutationSettledMsg) (tea.Model, tea.Cmd) {
	v, ok := m.Views[msg.Key]
	if !ok {
		return m, nil
	}
	r := v.Collection().Settle(msg.Settlement)
	v.refreshTable()
	m.updateInspector()

	if r.RolledBack {
		verb := map[table.Op]string{table.OpAdd: "Create", table.OpEdit: "Update", table.OpDelete: "Delete"}[r.Op]
		return m.setStatus(fmt.Sprintf("%s failed: %s", verb, r.Message), true)
	}

	var cmds []tea.Cmd
	if r.NeedsRefresh {
		v.Params = v.Params.Refreshed()
		cmds = append(cmds, v.Sync())
	}
	// A page emptied by deletes falls back to the previous one
	if r.Op == table.OpDelete && v.Collection().Len() == 0 && v.Params.Page > 1 {
		v.Params = v.Params.WithPage(v.Params.Page - 1)
		cmds = append(cmds, v.Sync())
	}

	var text string
	switch r.Op {
	case table.OpAdd:
		text = "Created " + v.Res.Title + " #" + r.Row.GetID()
	case table.OpEdit:
		text = "Updated " + v.Res.Title + " #" + r.Row.GetID()
	case table.OpDelete:
		text = "Deleted " + v.Res.Title + " #" + r.Row.GetID()
	}
	model, cmd := m.setStatus(text, false)
	cmds = append(cmds, cmd)
	return model, tea.Batch(cmds...)
}

// updateRunPreview regenerates the preset command in the run view
func (m *Model) updateRunPreview() {
	p, ok := m.Run.Preset()
	if !ok {
		return
	}
	cmd, err := m.RunSvc.Command(service.RunRequest{
		Preset:  p.Key,
		Program: m.Run.Program(),
		Target:  m.Run.Target(),
		LastRun: m.Run.LastRun(),
		Verbose: m.Run.Verbose(),
	})
	if m.Run.Program() == "" && m.Run.Target() == "" {
		err = nil
	}
	m.Run.SetPreview(cmd, err)
}

// startRun closes a live run and streams the run view's command
func (m Model) startRun() (tea.Model, tea.Cmd) {
	command := m.Run.Command()
	if command == "" {
		m.updateRunPreview()
		return m.setStatus("Nothing to run: pick a program and target", true)
	}
	if m.Run.Running() {
		m.RunSvc.Cancel()
	}
	sess, err := m.RunSvc.Start(command)
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.Run.ClearOutput()
	m.Run.SetSession(sess)
	m.logger.Info("run started", "session", sess.ID, "command", command)
	return m, tea.Batch(OpenStreamCmd(sess), m.Run.SpinnerTick(), LoadHistoryCmd(m.RunSvc))
}

// handleStreamEvent applies a session event and keeps reading until the
// session closes
func (m Model) handleStreamEvent(ev stream.Event) (tea.Model, tea.Cmd) {
	sess := m.RunSvc.Current()
	if sess == nil || ev.SessionID != sess.ID {
		return m, nil
	}
	wasLive := sess.Status().Live()
	sess.Apply(ev)
	m.Run.SetSession(sess)

	var cmds []tea.Cmd
	if sess.Status() != stream.StatusClosed {
		cmds = append(cmds, NextStreamEventCmd(sess))
	}
	if wasLive && !sess.Status().Live() {
		m.RunSvc.Record(sess)
		cmds = append(cmds, LoadHistoryCmd(m.RunSvc))
		code, _ := sess.ExitCode()
		if sess.Outcome() == stream.StatusCompleted && code == 0 && m.autoClear {
			cmds = append(cmds, AutoClearCmd(sess.ID, autoClearDelay))
		}
		if sess.Outcome() == stream.StatusErrored {
			model, cmd := m.setStatus("Run failed: "+sess.ErrorMessage(), true)
			return model, tea.Batch(append(cmds, cmd)...)
		}
		model, cmd := m.setStatus("Run finished (exit "+strconv.Itoa(code)+")", code != 0)
		return model, tea.Batch(append(cmds, cmd)...)
	}
	return m, tea.Batch(cmds...)
}

// cancelRun force-closes the live run
func (m Model) cancelRun() (tea.Model, tea.Cmd) {
	if !m.Run.Running() {
		return m, nil
	}
	if err := m.RunSvc.Cancel(); err != nil {
		m.logger.Debug("closing run socket", "error", err)
	}
	m.Run.SetSession(m.RunSvc.Current())
	model, cmd := m.setStatus(stream.CancelledText, true)
	return model, tea.Batch(cmd, LoadHistoryCmd(m.RunSvc))
}

func programOptions(names []string) []components.PickerOption {
	opts := make([]components.PickerOption, len(names))
	for i, n := range names {
		opts[i] = components.PickerOption{Value: n}
	}
	return opts
}
