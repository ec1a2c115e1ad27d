package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "daytask/internal/modules/plugin/dto"
	"daytask/internal/ui/theme"
)

type Port interface {
	List(ctx context.Context) ([]plugindto.PluginInfo, error)
	ListCommands(ctx context.Context, pluginName string) ([]plugindto.CommandInfo, error)
	Run(ctx context.Context, input plugindto.RunInput) (plugindto.RunOutput, error)
}

type PluginsLoadedMsg struct {
	Plugins []plugindto.PluginInfo
	Err     error
}

type CommandsLoadedMsg struct {
	PluginName string
	Commands   []plugindto.CommandInfo
	Err        error
}

// RunDoneMsg carries the result of a command run against the day.
type RunDoneMsg struct {
	Out plugindto.RunOutput
	Err error
}

type pluginItem struct{ info plugindto.PluginInfo }

func (i pluginItem) Title() string {
	if !i.info.Enabled {
		return theme.Done.Render(i.info.Name + " " + i.info.Version)
	}
	return i.info.Name + " " + i.info.Version
}

func (i pluginItem) Description() string {
	return strings.Join(i.info.Capabilities, ", ")
}

func (i pluginItem) FilterValue() string { return i.info.Name }

type commandItem struct{ cmd plugindto.CommandInfo }

func (i commandItem) Title() string       { return i.cmd.Title }
func (i commandItem) Description() string { return i.cmd.Kind + ": " + i.cmd.Description }
func (i commandItem) FilterValue() string { return i.cmd.ID + " " + i.cmd.Title }

type pane int

const (
	paneInstalled pane = iota
	paneCommands
	paneResult
)

// Model picks a plugin and one of its commands and runs it with the day
// being browsed as context.
type Model struct {
	port     Port
	pane     pane
	plugins  list.Model
	commands list.Model
	result   viewport.Model
	spinner  spinner.Model
	busy     bool
	status   string

	plugin  string
	dataDir string
	taskID  string
	day     string
	tasks   []plugindto.TaskRef

	width  int
	height int
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	return l
}

// New builds the pane. dataDir is handed to plugins as their data and
// working directory.
func New(port Port, dataDir string) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Background(theme.Mantle).Foreground(theme.Text).Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:     port,
		plugins:  newList("Installed plugins"),
		commands: newList("Commands"),
		result:   vp,
		spinner:  sp,
		dataDir:  dataDir,
	}
}

// SetContext records what a run will see: the highlighted task and the
// tasks of the browsed day.
func (m *Model) SetContext(taskID string, day time.Time, tasks []plugindto.TaskRef) {
	m.taskID = taskID
	m.day = ""
	if !day.IsZero() {
		m.day = day.Format(time.DateOnly)
	}
	m.tasks = tasks
}

func (m Model) Init() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return m.loadPluginsCmd()
}

// Refresh reloads the installed plugins and returns to that list.
func (m *Model) Refresh() tea.Cmd {
	if m.port == nil {
		m.status = "plugins are not configured"
		return nil
	}
	m.pane = paneInstalled
	return m.loadPluginsCmd()
}

// LoadCommands shows the commands of pluginName.
func (m *Model) LoadCommands(pluginName string) tea.Cmd {
	if m.port == nil {
		m.status = "plugins are not configured"
		return nil
	}
	m.plugin = pluginName
	m.busy = true
	return tea.Batch(m.loadCommandsCmd(pluginName), m.spinner.Tick)
}

// ExecCommand runs commandID of pluginName with the current day context.
func (m *Model) ExecCommand(pluginName, commandID, inputJSON string) tea.Cmd {
	if m.port == nil {
		m.status = "plugins are not configured"
		return nil
	}
	m.plugin = pluginName
	m.busy = true
	return tea.Batch(m.runCmd(commandID, inputJSON), m.spinner.Tick)
}

// Filtering reports whether a list filter has the keyboard.
func (m Model) Filtering() bool {
	return m.plugins.FilterState() == list.Filtering || m.commands.FilterState() == list.Filtering
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case PluginsLoadedMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = "load plugins: " + msg.Err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("%d plugins installed", len(msg.Plugins))
		items := make([]list.Item, len(msg.Plugins))
		for i, p := range msg.Plugins {
			items[i] = pluginItem{info: p}
		}
		return m, m.plugins.SetItems(items)

	case CommandsLoadedMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = "load commands: " + msg.Err.Error()
			return m, nil
		}
		m.status = ""
		items := make([]list.Item, len(msg.Commands))
		for i, c := range msg.Commands {
			items[i] = commandItem{cmd: c}
		}
		m.commands.Title = msg.PluginName + " commands"
		m.pane = paneCommands
		return m, m.commands.SetItems(items)

	case RunDoneMsg:
		m.busy = false
		m.status = ""
		m.result.SetContent(renderResult(msg.Out, msg.Err))
		m.result.GotoTop()
		m.pane = paneResult
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if cmd, ok := m.handleKey(msg); ok {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.pane {
	case paneInstalled:
		m.plugins, cmd = m.plugins.Update(msg)
	case paneCommands:
		m.commands, cmd = m.commands.Update(msg)
	case paneResult:
		m.result, cmd = m.result.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.Filtering() {
		return nil, false
	}
	switch m.pane {
	case paneInstalled:
		switch msg.String() {
		case "enter":
			item, ok := m.plugins.SelectedItem().(pluginItem)
			if !ok {
				return nil, true
			}
			if !item.info.Enabled {
				m.status = item.info.Name + " is disabled"
				return nil, true
			}
			return m.LoadCommands(item.info.Name), true
		case "r":
			return m.Refresh(), true
		}
	case paneCommands:
		switch msg.String() {
		case "enter":
			item, ok := m.commands.SelectedItem().(commandItem)
			if !ok {
				return nil, true
			}
			m.busy = true
			return tea.Batch(m.runCmd(item.cmd.ID, ""), m.spinner.Tick), true
		case "esc":
			m.pane = paneInstalled
			return nil, true
		}
	case paneResult:
		if msg.String() == "esc" {
			m.pane = paneCommands
			return nil, true
		}
	}
	return nil, false
}

func (m Model) View() string {
	header := m.renderHeader()
	bodyH := max(m.height-lipgloss.Height(header), 1)

	var body string
	switch {
	case m.busy:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Running")
	case m.pane == paneInstalled:
		body = m.withSide(m.plugins.View(), "enter: list commands  r: refresh", bodyH)
	case m.pane == paneCommands:
		body = m.withSide(m.commands.View(), m.commandDetail()+"\n\n"+m.contextSummary(), bodyH)
	case m.pane == paneResult:
		m.result.Height = max(bodyH-1, 1)
		body = theme.Muted.Render("esc: back to commands") + "\n" + m.result.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) withSide(main, side string, h int) string {
	mainW := m.width * 4 / 10
	left := lipgloss.NewStyle().Width(mainW).Height(h).Render(main)
	right := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Surface1).
		Background(theme.Mantle).Width(max(m.width-mainW-2, 1)).Height(max(h-2, 1)).
		Render(side)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *Model) resize() {
	listW := m.width * 4 / 10
	m.plugins.SetSize(listW, m.height-3)
	m.commands.SetSize(listW, m.height-3)
	m.result.Width = m.width - 4
	m.result.Height = m.height - 4
}

func (m Model) renderHeader() string {
	line := theme.Title.Render("Plugins")
	if m.plugin != "" {
		line += "  " + theme.Muted.Render(m.plugin)
	}
	if m.status != "" {
		line += "  " + theme.Muted.Render(m.status)
	}
	return line + "\n"
}

func (m Model) commandDetail() string {
	item, ok := m.commands.SelectedItem().(commandItem)
	if !ok {
		return theme.Muted.Render("no commands")
	}
	c := item.cmd
	detail := theme.Title.Render(c.Title) + "\n" + c.Description + "\n\n" +
		theme.Muted.Render(fmt.Sprintf("kind %s  timeout %dms", c.Kind, c.TimeoutMS))
	if c.InputSchemaJSON != "" {
		detail += "\n" + theme.Muted.Render("input "+c.InputSchemaJSON)
	}
	return detail + "\n" + theme.Muted.Render("enter: run  esc: back")
}

// contextSummary shows what the next run will be handed.
func (m Model) contextSummary() string {
	if m.day == "" {
		return theme.Muted.Render("no day selected")
	}
	done := 0
	selected := ""
	for _, t := range m.tasks {
		if t.Completed {
			done++
		}
		if t.ID == m.taskID {
			selected = t.Title
		}
	}
	s := fmt.Sprintf("runs on %s with %d tasks, %d done", m.day, len(m.tasks), done)
	if selected != "" {
		s += "\nselected: " + selected
	}
	return theme.Muted.Render(s)
}

func renderResult(out plugindto.RunOutput, err error) string {
	if err != nil {
		return theme.Error.Render("Error: " + err.Error())
	}
	var sb strings.Builder
	heading := fmt.Sprintf("%s %s", out.PluginName, out.CommandID)
	if out.ExitCode != 0 {
		sb.WriteString(theme.Error.Render(fmt.Sprintf("%s failed with exit %d", heading, out.ExitCode)))
	} else {
		sb.WriteString(theme.Title.Render(heading))
	}
	sb.WriteString("\n\n")
	if out.Stdout != "" {
		sb.WriteString(out.Stdout + "\n")
	}
	if out.OutputJSON != "" {
		sb.WriteString(theme.Muted.Render("result ") + out.OutputJSON + "\n")
	}
	if out.Stderr != "" {
		sb.WriteString(theme.Hot.Render("stderr") + "\n" + out.Stderr + "\n")
	}
	return sb.String()
}

func (m Model) loadPluginsCmd() tea.Cmd {
	return func() tea.Msg {
		plugins, err := m.port.List(context.Background())
		return PluginsLoadedMsg{Plugins: plugins, Err: err}
	}
}

func (m Model) loadCommandsCmd(pluginName string) tea.Cmd {
	return func() tea.Msg {
		cmds, err := m.port.ListCommands(context.Background(), pluginName)
		return CommandsLoadedMsg{PluginName: pluginName, Commands: cmds, Err: err}
	}
}

func (m Model) runCmd(commandID, inputJSON string) tea.Cmd {
	input := plugindto.RunInput{
		PluginName: m.plugin,
		CommandID:  commandID,
		InputJSON:  inputJSON,
		TaskID:     m.taskID,
		Day:        m.day,
		Tasks:      m.tasks,
		DataDir:    m.dataDir,
		Cwd:        m.dataDir,
	}
	return func() tea.Msg {
		out, err := m.port.Run(context.Background(), input)
		return RunDoneMsg{Out: out, Err: err}
	}
}
