package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/stream"
	"github.com/mmcdole/recon/internal/tui/styles"
)

// RunField is a focusable field of the run view
type RunField int

const (
	FieldPreset RunField = iota
	FieldProgram
	FieldTarget
	FieldLastRun
	FieldVerbose
	FieldCommand
	FieldOutput
	fieldCount
)

// RunAction tells the app what a key press in the run view asked for
type RunAction int

const (
	RunNone RunAction = iota
	RunInputsChanged
	RunStart
	RunCancel
	RunPickPreset
	RunPickProgram
	RunCopyOutput
	RunClearOutput
	RunLeave
	RunRerun
)

// Layout constants for the run view
const (
	runFormHeight = 9 // border, title, five form rows, blank, status
	historyWidth  = 44
)

// RunView is the streamed execution panel: a preset form with a command
// preview above the live output.
type RunView struct {
	width   int
	height  int
	focused bool
	focus   RunField

	presets []domain.RunPreset
	preset  int
	program textinput.Model
	target  textinput.Model
	command textinput.Model
	lastRun bool
	verbose bool
	edited  bool // command was typed by hand
	preview string
	formErr string

	output  viewport.Model
	spinner spinner.Model
	follow  bool

	status   stream.Status
	outcome  stream.Status
	message  string
	exitCode *int
	started  time.Time

	history     []domain.RunRecord
	showHistory bool
	histCursor  int
}

func newRunInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	return ti
}

// NewRunView creates a new run view
func NewRunView() RunView {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.SpinnerStyle),
	)
	return RunView{
		program: newRunInput("select or type a program", 200),
		target:  newRunInput("target", 500),
		command: newRunInput("command to run", 2000),
		output:  viewport.New(0, 0),
		spinner: sp,
		follow:  true,
		status:  stream.StatusIdle,
		outcome: stream.StatusIdle,
	}
}

// SetPresets sets the run presets offered by the preset field
func (v *RunView) SetPresets(presets []domain.RunPreset) {
	v.presets = presets
	if v.preset >= len(presets) {
		v.preset = 0
	}
	v.applyPreset()
}

// Preset returns the selected preset
func (v RunView) Preset() (domain.RunPreset, bool) {
	if v.preset < 0 || v.preset >= len(v.presets) {
		return domain.RunPreset{}, false
	}
	return v.presets[v.preset], true
}

// SelectPreset selects the preset with key
func (v *RunView) SelectPreset(key string) {
	for i, p := range v.presets {
		if p.Key == key {
			v.preset = i
			v.applyPreset()
			return
		}
	}
}

func (v *RunView) applyPreset() {
	p, ok := v.Preset()
	if !ok {
		return
	}
	label := p.TargetLabel
	if label == "" {
		label = "Target"
	}
	ph := p.Placeholder
	if ph == "" {
		ph = strings.ToLower(label)
	}
	v.target.Placeholder = ph
	if !p.LastRun {
		v.lastRun = false
	}
	v.edited = false
}

// Program returns the program field value
func (v RunView) Program() string { return strings.TrimSpace(v.program.Value()) }

// SetProgram fills the program field
func (v *RunView) SetProgram(name string) {
	v.program.SetValue(name)
	v.program.CursorEnd()
	v.edited = false
}

// Target returns the target field value
func (v RunView) Target() string { return strings.TrimSpace(v.target.Value()) }

// LastRun reports whether the last-run flag is set
func (v RunView) LastRun() bool { return v.lastRun }

// Verbose reports whether the verbose flag is set
func (v RunView) Verbose() bool { return v.verbose }

// Command returns the command that will run
func (v RunView) Command() string { return strings.TrimSpace(v.command.Value()) }

// SetCommand loads a command by hand, e.g. from history
func (v *RunView) SetCommand(cmd string) {
	v.command.SetValue(cmd)
	v.command.CursorEnd()
	v.edited = true
	v.formErr = ""
}

// SetPreview updates the generated command. A hand-edited command is
// left alone. err is shown when the form is incomplete.
func (v *RunView) SetPreview(cmd string, err error) {
	v.formErr = ""
	if err != nil {
		v.formErr = err.Error()
	}
	if v.edited {
		return
	}
	v.preview = cmd
	v.command.SetValue(cmd)
	v.command.CursorEnd()
}

// SetHistory updates the run history list
func (v *RunView) SetHistory(runs []domain.RunRecord) {
	v.history = runs
	if v.histCursor >= len(runs) {
		v.histCursor = max(len(runs)-1, 0)
	}
}

// ToggleHistory shows or hides the history pane
func (v *RunView) ToggleHistory() {
	v.showHistory = !v.showHistory
	v.resize()
}

// ShowingHistory reports whether the history pane is visible
func (v RunView) ShowingHistory() bool { return v.showHistory }

// SelectedRun returns the highlighted history entry
func (v RunView) SelectedRun() (domain.RunRecord, bool) {
	if !v.showHistory || v.histCursor >= len(v.history) {
		return domain.RunRecord{}, false
	}
	return v.history[v.histCursor], true
}

// SetSession mirrors a session's state and output. It must be called
// after every applied event.
func (v *RunView) SetSession(sess *stream.Session) {
	if sess == nil {
		return
	}
	v.status = sess.Status()
	v.outcome = sess.Outcome()
	v.message = sess.ErrorMessage()
	v.started = sess.StartedAt
	v.exitCode = nil
	if code, ok := sess.ExitCode(); ok {
		v.exitCode = &code
	}
	v.output.SetContent(stream.Render(sess.Output()))
	if v.follow {
		v.output.GotoBottom()
	}
}

// ClearOutput empties the output pane and forgets the last outcome
func (v *RunView) ClearOutput() {
	v.output.SetContent("")
	v.output.GotoTop()
	if !v.status.Live() {
		v.status = stream.StatusIdle
		v.outcome = stream.StatusIdle
		v.message = ""
		v.exitCode = nil
	}
}

// Running reports whether a run is live
func (v RunView) Running() bool { return v.status.Live() }

// Focus moves focus to f
func (v *RunView) Focus(f RunField) {
	v.program.Blur()
	v.target.Blur()
	v.command.Blur()
	v.focus = (f + fieldCount) % fieldCount
	switch v.focus {
	case FieldProgram:
		v.program.Focus()
	case FieldTarget:
		v.target.Focus()
	case FieldCommand:
		v.command.Focus()
	}
}

// FocusedField returns the focused field
func (v RunView) FocusedField() RunField { return v.focus }

// Typing reports whether a text input has focus
func (v RunView) Typing() bool {
	return v.focused && (v.focus == FieldProgram || v.focus == FieldTarget || v.focus == FieldCommand)
}

// SetFocused sets the focus state
func (v *RunView) SetFocused(focused bool) {
	v.focused = focused
	if focused {
		v.Focus(v.focus)
		return
	}
	v.program.Blur()
	v.target.Blur()
	v.command.Blur()
}

// SetSize updates the component dimensions
func (v *RunView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.resize()
}

func (v *RunView) resize() {
	w := v.width - 2
	if v.showHistory {
		w -= historyWidth
	}
	v.output.Width = max(w-2, 10)
	v.output.Height = max(v.height-runFormHeight-3, 3)
	inputW := max(v.width-24, 10)
	v.program.Width = inputW
	v.target.Width = inputW
	v.command.Width = max(v.width-16, 10)
}

// SpinnerTick starts the spinner animation
func (v RunView) SpinnerTick() tea.Cmd {
	return v.spinner.Tick
}

// Update handles messages, returns (view, cmd, action)
func (v RunView) Update(msg tea.Msg) (RunView, tea.Cmd, RunAction) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !v.status.Live() {
			return v, nil, RunNone
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd, RunNone

	case tea.KeyMsg:
		if !v.focused {
			return v, nil, RunNone
		}
		return v.handleKey(msg)
	}
	return v, nil, RunNone
}

func (v RunView) handleKey(msg tea.KeyMsg) (RunView, tea.Cmd, RunAction) {
	// Keys that work from every field
	switch {
	case key.Matches(msg, RunKeys.Next):
		v.Focus(v.focus + 1)
		return v, nil, RunNone
	case key.Matches(msg, RunKeys.Prev):
		v.Focus(v.focus - 1)
		return v, nil, RunNone
	case key.Matches(msg, RunKeys.Start):
		return v, nil, RunStart
	case key.Matches(msg, RunKeys.Cancel):
		return v, nil, RunCancel
	case key.Matches(msg, RunKeys.Leave):
		return v, nil, RunLeave
	}

	k := msg.String()

	switch v.focus {
	case FieldPreset:
		switch k {
		case "enter", " ":
			return v, nil, RunPickPreset
		case "left", "h":
			if len(v.presets) > 0 {
				v.preset = (v.preset - 1 + len(v.presets)) % len(v.presets)
				v.applyPreset()
			}
			return v, nil, RunInputsChanged
		case "right", "l":
			if len(v.presets) > 0 {
				v.preset = (v.preset + 1) % len(v.presets)
				v.applyPreset()
			}
			return v, nil, RunInputsChanged
		case "j", "down":
			v.Focus(FieldProgram)
		}
		return v, nil, RunNone

	case FieldLastRun, FieldVerbose:
		switch k {
		case " ", "enter", "x":
			if v.focus == FieldVerbose {
				v.verbose = !v.verbose
			} else if p, ok := v.Preset(); ok && p.LastRun {
				v.lastRun = !v.lastRun
			}
			v.edited = false
			return v, nil, RunInputsChanged
		case "j", "down":
			v.Focus(v.focus + 1)
		case "k", "up":
			v.Focus(v.focus - 1)
		}
		return v, nil, RunNone

	case FieldProgram:
		switch k {
		case "ctrl+p", "enter":
			return v, nil, RunPickProgram
		case "down":
			v.Focus(FieldTarget)
			return v, nil, RunNone
		case "up":
			v.Focus(FieldPreset)
			return v, nil, RunNone
		}
		cmd, action := v.updateInput(msg, &v.program)
		return v, cmd, action

	case FieldTarget:
		switch k {
		case "enter", "down":
			v.Focus(FieldLastRun)
			return v, nil, RunNone
		case "up":
			v.Focus(FieldProgram)
			return v, nil, RunNone
		}
		cmd, action := v.updateInput(msg, &v.target)
		return v, cmd, action

	case FieldCommand:
		switch k {
		case "enter":
			return v, nil, RunStart
		case "ctrl+u":
			if v.edited {
				v.edited = false
				v.command.SetValue(v.preview)
				v.command.CursorEnd()
				return v, nil, RunInputsChanged
			}
		case "up":
			v.Focus(FieldVerbose)
			return v, nil, RunNone
		case "down":
			v.Focus(FieldOutput)
			return v, nil, RunNone
		}
		prev := v.command.Value()
		var cmd tea.Cmd
		v.command, cmd = v.command.Update(msg)
		if v.command.Value() != prev {
			v.edited = true
		}
		return v, cmd, RunNone

	case FieldOutput:
		return v.handleOutputKey(msg)
	}
	return v, nil, RunNone
}

func (v *RunView) updateInput(msg tea.KeyMsg, input *textinput.Model) (tea.Cmd, RunAction) {
	prev := input.Value()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	if input.Value() != prev {
		v.edited = false
		return cmd, RunInputsChanged
	}
	return cmd, RunNone
}

func (v RunView) handleOutputKey(msg tea.KeyMsg) (RunView, tea.Cmd, RunAction) {
	switch {
	case key.Matches(msg, RunKeys.Copy):
		return v, nil, RunCopyOutput
	case key.Matches(msg, RunKeys.Clear):
		return v, nil, RunClearOutput
	case key.Matches(msg, RunKeys.History):
		v.ToggleHistory()
		return v, nil, RunNone
	case key.Matches(msg, RunKeys.Preset):
		return v, nil, RunPickPreset
	case key.Matches(msg, RunKeys.Follow):
		v.follow = !v.follow
		if v.follow {
			v.output.GotoBottom()
		}
		return v, nil, RunNone
	}

	if v.showHistory {
		switch {
		case key.Matches(msg, RunKeys.HistDn):
			if v.histCursor < len(v.history)-1 {
				v.histCursor++
			}
			return v, nil, RunNone
		case key.Matches(msg, RunKeys.HistUp):
			if v.histCursor > 0 {
				v.histCursor--
			}
			return v, nil, RunNone
		case key.Matches(msg, RunKeys.Rerun):
			if _, ok := v.SelectedRun(); ok {
				return v, nil, RunRerun
			}
		}
	}

	var cmd tea.Cmd
	v.output, cmd = v.output.Update(msg)
	v.follow = v.output.AtBottom()
	return v, cmd, RunNone
}

// View renders the run view
func (v RunView) View() string {
	style := styles.InactiveBorder
	if v.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()
	innerW := max(v.width-frameW, 20)
	innerH := max(v.height-frameH, 5)

	form := v.renderForm(innerW)

	outputBox := v.output.View()
	if v.showHistory {
		outputBox = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(v.output.Width).Render(outputBox),
			"  ",
			v.renderHistory(historyWidth-2, v.output.Height),
		)
	}

	outputStyle := styles.InactiveBorder
	if v.focused && v.focus == FieldOutput {
		outputStyle = styles.ActiveBorder
	}
	output := outputStyle.Width(innerW - 2).Render(outputBox)

	content := lipgloss.JoinVertical(lipgloss.Left, form, output)
	return style.
		Width(innerW).
		Height(innerH).
		Render(content)
}

func (v RunView) label(f RunField, text string) string {
	s := styles.DimStyle
	if v.focused && v.focus == f {
		s = styles.AccentStyle
	}
	return s.Render(styles.Pad(text, 14))
}

func (v RunView) marker(f RunField) string {
	if v.focused && v.focus == f {
		return styles.AccentStyle.Render("›")
	}
	return " "
}

func toggle(on, enabled bool) string {
	switch {
	case !enabled:
		return styles.DimStyle.Render("[-]")
	case on:
		return styles.SuccessStyle.Render("[x]")
	default:
		return "[ ]"
	}
}

func (v RunView) renderForm(width int) string {
	p, _ := v.Preset()

	presetName := styles.DimStyle.Render("no presets")
	if p.Key != "" {
		presetName = "‹ " + styles.TitleStyle.Render(orKey(p.Title, p.Key)) + " ›" +
			styles.DimStyle.Render("  -m "+p.Mode)
	}
	targetLabel := p.TargetLabel
	if targetLabel == "" {
		targetLabel = "Target"
	}
	if !p.NeedsTarget {
		targetLabel += " (opt)"
	}

	lines := []string{
		styles.AccentStyle.Render("Run"),
		v.label(FieldPreset, "Mode") + presetName,
		v.label(FieldProgram, "Program") + v.program.View(),
		v.label(FieldTarget, targetLabel) + v.target.View(),
		v.label(FieldLastRun, "Flags") + v.marker(FieldLastRun) + toggle(v.lastRun, p.LastRun) + " last run   " +
			v.marker(FieldVerbose) + toggle(v.verbose, true) + " verbose",
		v.label(FieldCommand, "Command") + v.command.View(),
	}
	if v.formErr != "" {
		lines = append(lines, styles.ErrorStyle.Render(v.formErr))
	} else if v.edited {
		lines = append(lines, styles.DimStyle.Render("edited by hand · C-u restores the preset command"))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, v.renderStatus())

	for i := range lines {
		lines[i] = styles.Truncate(lines[i], width)
	}
	return strings.Join(lines, "\n")
}

func orKey(title, k string) string {
	if title != "" {
		return title
	}
	return k
}

func (v RunView) renderStatus() string {
	switch {
	case v.status == stream.StatusConnecting:
		return v.spinner.View() + styles.DimStyle.Render(" connecting…")
	case v.status == stream.StatusStreaming:
		elapsed := time.Since(v.started).Truncate(time.Second)
		return v.spinner.View() + styles.AccentStyle.Render(" running") + styles.DimStyle.Render(" "+elapsed.String()+" · C-x cancels")
	case v.outcome == stream.StatusCompleted:
		text := styles.DoneChar + " completed"
		if v.exitCode != nil {
			text += fmt.Sprintf(" (exit %d)", *v.exitCode)
		}
		if v.exitCode != nil && *v.exitCode != 0 {
			return styles.ErrorStyle.Render(text)
		}
		return styles.SuccessStyle.Render(text)
	case v.outcome == stream.StatusErrored:
		return styles.ErrorStyle.Render(styles.FailedChar + " " + orKey(v.message, "failed"))
	default:
		return styles.DimStyle.Render("idle · C-r runs the command")
	}
}

func (v RunView) renderHistory(width, height int) string {
	lines := []string{styles.HeaderStyle.Render("History")}
	if len(v.history) == 0 {
		lines = append(lines, styles.DimStyle.Render("No runs yet"))
	}
	start := 0
	if v.histCursor >= height-1 {
		start = v.histCursor - height + 2
	}
	for i := start; i < len(v.history) && len(lines) < height; i++ {
		r := v.history[i]
		mark := styles.SuccessStyle.Render(styles.DoneChar)
		if r.Status != stream.StatusCompleted.String() || (r.ExitCode != nil && *r.ExitCode != 0) {
			mark = styles.ErrorStyle.Render(styles.FailedChar)
		}
		text := fmt.Sprintf("%s %s %s", mark, r.StartedAt.Format("01-02 15:04"), r.Command)
		text = styles.Pad(text, width)
		if i == v.histCursor {
			text = styles.SelectedRowStyle.Render(ansi.Strip(text))
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
