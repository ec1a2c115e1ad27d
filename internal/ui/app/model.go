package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "daytask/internal/modules/plugin/dto"
	taskdto "daytask/internal/modules/task/dto"
	apperrors "daytask/internal/platform/errors"
	"daytask/internal/ui/components"
	"daytask/internal/ui/theme"
	composerview "daytask/internal/ui/views/composer"
	dayview "daytask/internal/ui/views/day"
	pluginsview "daytask/internal/ui/views/plugins"
	weekview "daytask/internal/ui/views/week"
)

// Ports are the slices of the use cases this layer drives. The planner is
// called synchronously for in-memory state and from commands for store work.

type plannerPort interface {
	Snapshot() taskdto.SnapshotOutput
	SelectDay(day time.Time) taskdto.SnapshotOutput
	TasksForDay(ctx context.Context, day time.Time) (taskdto.DayTasksOutput, error)
	OpenCreate() (taskdto.SessionOutput, error)
	OpenEdit(ctx context.Context, id string) (taskdto.SessionOutput, error)
	SetDraft(input taskdto.DraftInput) (taskdto.SessionOutput, error)
	Save(ctx context.Context) (taskdto.SaveOutput, error)
	Cancel() error
	Complete(ctx context.Context, id string) (taskdto.TaskOutput, error)
	Delete(ctx context.Context, id string) error
	ExportDay(ctx context.Context, day time.Time) (taskdto.ExportOutput, error)
}

type pluginPort interface {
	List(ctx context.Context) ([]plugindto.PluginInfo, error)
	ListCommands(ctx context.Context, pluginName string) ([]plugindto.CommandInfo, error)
	Run(ctx context.Context, input plugindto.RunInput) (plugindto.RunOutput, error)
}

type tabID int

const (
	tabDay tabID = iota
	tabPlugins
	tabCount
)

var tabLabels = [tabCount]string{"Day", "Plugins"}

// SnapshotMsg carries planner state pushed from a subscription.
type SnapshotMsg struct{ Snapshot taskdto.SnapshotOutput }

type tickMsg time.Time

type sessionOpenedMsg struct {
	session taskdto.SessionOutput
	err     error
}

type savedMsg struct {
	out taskdto.SaveOutput
	err error
}

type actionDoneMsg struct {
	status string
	err    error
}

type keyMap struct {
	PrevDay  key.Binding
	NextDay  key.Binding
	Add      key.Binding
	Edit     key.Binding
	Complete key.Binding
	Delete   key.Binding
	Export   key.Binding
	Tab      key.Binding
	Help     key.Binding
	Palette  key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		PrevDay:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("left", "previous day")),
		NextDay:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("right", "next day")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export agenda")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.Tab},
		{k.Add, k.Edit, k.Complete, k.Delete, k.Export},
		{k.Help, k.Palette, k.Quit},
	}
}

// Model is the root Bubble Tea model. It owns tab routing, the composer
// overlay, help and the command palette; task state lives in the planner.
type Model struct {
	dataDir string
	planner plannerPort

	snapshot   taskdto.SnapshotOutput
	weekView   weekview.Model
	dayView    dayview.Model
	composer   composerview.Model
	pluginView pluginsview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	statusErr bool
	width     int
	height    int
}

func NewModel(dataDir string, planner plannerPort, plugin pluginPort) Model {
	m := Model{
		dataDir:    dataDir,
		planner:    planner,
		weekView:   weekview.New(),
		dayView:    dayview.New(planner),
		composer:   composerview.New(),
		pluginView: pluginsview.New(plugin, dataDir),
		activeTab:  tabDay,
		keys:       defaultKeys(),
		help:       help.New(),
		palette:    components.NewPalette(),
		status:     "ready",
	}
	m.applySnapshot(planner.Snapshot())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.dayView.Init(),
		m.dayView.Load(m.snapshot.CurrentDay),
		m.pluginView.Init(),
		tickCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.composer.SetWidth(min(m.width-4, 90))
		m.help.Width = m.width
		m.weekView.SetWidth(m.width)
		m.propagateSize()
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(), m.reload())

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case dayview.TasksLoadedMsg:
		// A slower query for a day the user already moved away from.
		if !sameDate(msg.Day, m.snapshot.CurrentDay) {
			return m, nil
		}
		var cmd tea.Cmd
		m.dayView, cmd = m.dayView.Update(msg)
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		m.syncPluginContext()
		return m, cmd

	case sessionOpenedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		return m, m.composer.Open(msg.session)

	case composerview.SubmitMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		return m, m.saveCmd(msg.Draft)

	case composerview.CancelMsg:
		if err := m.planner.Cancel(); err != nil && !errors.Is(err, apperrors.ErrNotComposing) {
			m.setError(err)
		} else {
			m.setStatus("cancelled")
		}
		return m, m.reload()

	case savedMsg:
		if msg.err != nil {
			// The composer stays open so the draft can be fixed and retried.
			m.setError(msg.err)
			return m, nil
		}
		m.composer.Close()
		verb := "updated"
		if msg.out.Created {
			verb = "created"
		}
		m.setStatus(verb + ": " + msg.out.Task.Title)
		return m, m.reload()

	case actionDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.status)
		}
		return m, m.reload()

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.setStatus("ready")
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.composer.Visible() {
			var cmd tea.Cmd
			m.composer, cmd = m.composer.Update(msg)
			return m, cmd
		}
		if m.palette.Visible() {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		if key.Matches(msg, m.keys.Tab) {
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		}

		// Yield to the active view while it takes free text.
		if m.typing() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		}

		if m.activeTab == tabDay {
			if cmd, ok := m.handleDayKey(msg); ok {
				return m, cmd
			}
		}
	}

	// Blink and other non-key messages still reach the overlays.
	if m.composer.Visible() {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		cmds = append(cmds, cmd)
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabDay:
		m.dayView, tabCmd = m.dayView.Update(msg)
		m.syncPluginContext()
	case tabPlugins:
		m.pluginView, tabCmd = m.pluginView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.composer.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.composer.View())
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabDay:
		return lipgloss.JoinVertical(lipgloss.Left, m.weekView.View(), "", m.dayView.View())
	case tabPlugins:
		return m.pluginView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" | ")
	bar := "daytask  " + strings.Join(parts, sep)
	if !m.snapshot.Now.IsZero() {
		bar += "  " + theme.Muted.Render(m.snapshot.Now.Format("Mon Jan 2 15:04"))
	}
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.statusErr {
		left = theme.Error.Render(m.status)
	}
	right := theme.Muted.Render("?:help  :palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m *Model) handleDayKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.PrevDay):
		return m.selectDay(m.snapshot.CurrentDay.AddDate(0, 0, -1)), true
	case key.Matches(msg, m.keys.NextDay):
		return m.selectDay(m.snapshot.CurrentDay.AddDate(0, 0, 1)), true
	case key.Matches(msg, m.keys.Add):
		return m.openCreate(), true
	case key.Matches(msg, m.keys.Edit):
		return m.withSelected(m.editIfAllowed), true
	case key.Matches(msg, m.keys.Complete):
		return m.withSelected(m.completeIfAllowed), true
	case key.Matches(msg, m.keys.Delete):
		return m.withSelected(m.deleteCmd), true
	case key.Matches(msg, m.keys.Export):
		return m.exportCmd(), true
	}
	return nil, false
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)

	switch parts[0] {
	case "add":
		m.activeTab = tabDay
		return m, m.openCreate()

	case "edit":
		return m, m.withSelected(m.editIfAllowed)

	case "complete":
		return m, m.withSelected(m.completeIfAllowed)

	case "delete":
		return m, m.withSelected(m.deleteCmd)

	case "export":
		return m, m.exportCmd()

	case "today":
		m.activeTab = tabDay
		return m, m.selectDay(m.snapshot.Now)

	case "goto":
		if len(parts) < 2 {
			m.setStatus("usage: goto <YYYY-MM-DD>")
			return m, nil
		}
		loc := m.snapshot.Now.Location()
		day, err := time.ParseInLocation(time.DateOnly, parts[1], loc)
		if err != nil {
			m.setError(fmt.Errorf("%w: date must look like YYYY-MM-DD", apperrors.ErrInvalidInput))
			return m, nil
		}
		m.activeTab = tabDay
		return m, m.selectDay(day)

	case "plugin:commands":
		m.activeTab = tabPlugins
		if len(parts) < 2 {
			return m, m.pluginView.Refresh()
		}
		return m, m.pluginView.LoadCommands(parts[1])

	case "plugin:exec":
		if len(parts) < 3 {
			m.setStatus("usage: plugin:exec <plugin> <command> [json]")
			return m, nil
		}
		prefix := parts[0] + " " + parts[1] + " " + parts[2]
		inputJSON := strings.TrimSpace(strings.TrimPrefix(input, prefix))
		m.syncPluginContext()
		m.activeTab = tabPlugins
		return m, m.pluginView.ExecCommand(parts[1], parts[2], inputJSON)

	default:
		m.setStatus("unknown command: " + parts[0])
	}
	return m, nil
}

// typing reports whether the active view owns the keyboard, in which case
// single-letter bindings must not fire.
func (m Model) typing() bool {
	switch m.activeTab {
	case tabDay:
		return m.dayView.Filtering()
	case tabPlugins:
		return m.pluginView.Filtering()
	}
	return false
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.pluginView, _ = m.pluginView.Update(sz)
	daySz := sz
	daySz.Height -= lipgloss.Height(m.weekView.View()) + 1
	m.dayView, _ = m.dayView.Update(daySz)
}

// applySnapshot keeps the newest planner state; subscription sends can
// arrive out of order.
func (m *Model) applySnapshot(s taskdto.SnapshotOutput) {
	if s.Seq < m.snapshot.Seq {
		return
	}
	m.snapshot = s
	m.weekView.SetWeek(s.Week)
}

// reload re-reads planner state and queries the current day again.
func (m *Model) reload() tea.Cmd {
	m.applySnapshot(m.planner.Snapshot())
	return m.dayView.Load(m.snapshot.CurrentDay)
}

func (m *Model) selectDay(day time.Time) tea.Cmd {
	m.applySnapshot(m.planner.SelectDay(day))
	m.composer.Close()
	return m.dayView.Load(m.snapshot.CurrentDay)
}

func (m *Model) openCreate() tea.Cmd {
	session, err := m.planner.OpenCreate()
	if err != nil {
		m.setError(err)
		return nil
	}
	return m.composer.Open(session)
}

func (m *Model) withSelected(fn func(taskdto.TaskOutput) tea.Cmd) tea.Cmd {
	task, ok := m.dayView.SelectedTask()
	if !ok {
		m.setStatus("no task selected")
		return nil
	}
	return fn(task)
}

func (m *Model) editIfAllowed(task taskdto.TaskOutput) tea.Cmd {
	if !dayview.CanEdit(task) {
		m.setStatus("past tasks cannot be edited")
		return nil
	}
	return m.openEditCmd(task)
}

func (m *Model) completeIfAllowed(task taskdto.TaskOutput) tea.Cmd {
	switch {
	case task.Completed:
		m.setStatus("already completed: " + task.Title)
		return nil
	case !dayview.CanComplete(task):
		m.setStatus("only tasks due this hour can be completed")
		return nil
	}
	return m.completeCmd(task)
}

func (m *Model) syncPluginContext() {
	task, _ := m.dayView.SelectedTask()
	tasks := m.dayView.Tasks()
	refs := make([]plugindto.TaskRef, len(tasks))
	for i, t := range tasks {
		refs[i] = plugindto.TaskRef{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueAt:       t.DueAt,
			Completed:   t.Completed,
		}
	}
	m.pluginView.SetContext(task.ID, m.dayView.Day(), refs)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) openEditCmd(task taskdto.TaskOutput) tea.Cmd {
	return func() tea.Msg {
		session, err := m.planner.OpenEdit(context.Background(), task.ID)
		return sessionOpenedMsg{session: session, err: err}
	}
}

func (m Model) saveCmd(draft taskdto.DraftInput) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.planner.SetDraft(draft); err != nil {
			return savedMsg{err: err}
		}
		out, err := m.planner.Save(context.Background())
		return savedMsg{out: out, err: err}
	}
}

func (m Model) completeCmd(task taskdto.TaskOutput) tea.Cmd {
	return func() tea.Msg {
		out, err := m.planner.Complete(context.Background(), task.ID)
		return actionDoneMsg{status: "completed: " + out.Title, err: err}
	}
}

func (m Model) deleteCmd(task taskdto.TaskOutput) tea.Cmd {
	return func() tea.Msg {
		err := m.planner.Delete(context.Background(), task.ID)
		return actionDoneMsg{status: "deleted: " + task.Title, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.planner.ExportDay(context.Background(), time.Time{})
		return actionDoneMsg{
			status: fmt.Sprintf("exported %d tasks to %s", out.Count, out.Path),
			err:    err,
		}
	}
}
