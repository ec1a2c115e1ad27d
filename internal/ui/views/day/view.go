package day

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	taskdto "daytask/internal/modules/task/dto"
	"daytask/internal/ui/theme"
)

// EmptyText is shown when the selected day has no tasks.
const EmptyText = "No tasks found!!!"

// Port is the slice of the planner this view reads from.
type Port interface {
	TasksForDay(ctx context.Context, day time.Time) (taskdto.DayTasksOutput, error)
}

// TasksLoadedMsg carries the result of a day query.
type TasksLoadedMsg struct {
	Day     time.Time
	Tasks   []taskdto.TaskOutput
	Queried bool
	Err     error
}

// CanComplete reports whether completion is offered for the task: only open
// tasks due in the current hour.
func CanComplete(task taskdto.TaskOutput) bool {
	return task.CurrentHour && !task.Completed
}

// CanEdit reports whether editing is offered for the task.
func CanEdit(task taskdto.TaskOutput) bool {
	return task.Editable
}

type taskItem struct {
	task taskdto.TaskOutput
}

func (i taskItem) Title() string {
	label := i.task.DueAt.Format("15:04") + "  " + i.task.Title
	switch {
	case i.task.Completed:
		return theme.Done.Render(label)
	case i.task.CurrentHour:
		return theme.Current.Render("● " + label)
	}
	return label
}

func (i taskItem) Description() string {
	first, _, _ := strings.Cut(i.task.Description, "\n")
	return first
}

func (i taskItem) FilterValue() string { return i.task.Title }

type Model struct {
	port     Port
	list     list.Model
	preview  viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	day      time.Time
	tasks    []taskdto.TaskOutput
	err      error
	loading  bool
	queried  bool
	width    int
	height   int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetStatusBarItemName("task", "tasks")
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)

	return Model{
		port:     port,
		list:     l,
		preview:  vp,
		spinner:  sp,
		renderer: r,
		loading:  true,
	}
}

// Load queries the tasks of day. The list keeps its previous content until
// the result arrives.
func (m Model) Load(day time.Time) tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.TasksForDay(context.Background(), day)
		return TasksLoadedMsg{Day: day, Tasks: out.Tasks, Queried: out.Queried, Err: err}
	}
}

func (m Model) Init() tea.Cmd { return m.spinner.Tick }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.preview.SetContent(m.renderDetail())

	case TasksLoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.queried = msg.Queried
		cmds = append(cmds, m.setTasks(msg.Day, msg.Tasks))

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.preview.SetContent(m.renderDetail())
			m.preview.GotoTop()
		}

		var vCmd tea.Cmd
		m.preview, vCmd = m.preview.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading tasks")
	}

	listW := m.width * 5 / 10
	detailW := m.width - listW

	var left string
	switch {
	case m.err != nil:
		left = theme.Error.Render("Error: " + m.err.Error())
	case !m.queried:
		left = theme.Title.Render(m.heading()) + "\n\n" + theme.Muted.Render("Not loaded yet")
	case len(m.tasks) == 0:
		left = theme.Title.Render(m.heading()) + "\n\n" + theme.Muted.Render(EmptyText)
	default:
		left = m.list.View()
	}
	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(left)

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.preview.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// Day returns the day whose tasks are shown.
func (m Model) Day() time.Time { return m.day }

// Tasks returns the loaded tasks, newest first.
func (m Model) Tasks() []taskdto.TaskOutput { return m.tasks }

// SelectedTask returns the highlighted task, if any.
func (m Model) SelectedTask() (taskdto.TaskOutput, bool) {
	if len(m.tasks) == 0 {
		return taskdto.TaskOutput{}, false
	}
	if item, ok := m.list.SelectedItem().(taskItem); ok {
		return item.task, true
	}
	return taskdto.TaskOutput{}, false
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m *Model) setTasks(day time.Time, tasks []taskdto.TaskOutput) tea.Cmd {
	selected, _ := m.SelectedTask()
	m.day = day
	m.tasks = tasks
	m.list.Title = m.heading()

	items := make([]list.Item, len(tasks))
	keep := 0
	for i, t := range tasks {
		items[i] = taskItem{task: t}
		if t.ID == selected.ID {
			keep = i
		}
	}
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(keep)
	}
	m.preview.SetContent(m.renderDetail())
	return cmd
}

func (m Model) heading() string {
	if m.day.IsZero() {
		return "Tasks"
	}
	return m.day.Format("Monday, Jan 2")
}

func (m *Model) resize() {
	listW := m.width * 5 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.preview.Width = detailW - 4
	m.preview.Height = m.height - 4
	if r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(m.preview.Width-2),
	); err == nil {
		m.renderer = r
	}
}

func (m Model) renderDetail() string {
	task, ok := m.SelectedTask()
	if !ok {
		return theme.Muted.Render("Select a task to see details")
	}
	status := "open"
	if task.Completed {
		status = "done"
	}
	md := "# " + task.Title + "\n\n" +
		"**Due** " + task.DueAt.Format("2006-01-02 15:04") + " · " + status + "\n\n" +
		task.Description + "\n"

	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out) + "\n\n" + theme.Muted.Render(actionHints(task))
}

func actionHints(task taskdto.TaskOutput) string {
	var hints []string
	if CanEdit(task) {
		hints = append(hints, "e: edit")
	}
	if CanComplete(task) {
		hints = append(hints, "c: complete")
	}
	hints = append(hints, "d: delete")
	return strings.Join(hints, "  ")
}
