package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	taskdto "daytask/internal/modules/task/dto"
	"daytask/internal/ui/theme"
)

// DueLayout is the text form of the due field.
const DueLayout = "2006-01-02 15:04"

// SubmitMsg is emitted on ctrl+s. Err is set when the due field does not parse.
type SubmitMsg struct {
	Draft taskdto.DraftInput
	Err   error
}

// CancelMsg is emitted on esc.
type CancelMsg struct{}

const (
	fieldTitle = iota
	fieldDescription
	fieldDue
)

var (
	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Lavender).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(theme.Subtext0)
	focusStyle = lipgloss.NewStyle().Foreground(theme.Sapphire).Bold(true)
)

// Model is the create/edit overlay. Due is only editable while creating.
type Model struct {
	title       textinput.Model
	description textarea.Model
	due         textinput.Model
	focus       int
	mode        string
	dueEditable bool
	loc         *time.Location
	visible     bool
	width       int
}

func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Description (markdown)"
	ta.CharLimit = 4000
	ta.SetHeight(6)
	ta.ShowLineNumbers = false

	due := textinput.New()
	due.Placeholder = DueLayout
	due.CharLimit = len(DueLayout)

	return Model{title: ti, description: ta, due: due, loc: time.UTC}
}

// Open shows the overlay filled from the planner's session.
func (m *Model) Open(s taskdto.SessionOutput) tea.Cmd {
	m.visible = true
	m.mode = s.Mode
	m.dueEditable = s.DueEditable
	m.loc = time.UTC
	if !s.DueAt.IsZero() {
		m.loc = s.DueAt.Location()
		m.due.SetValue(s.DueAt.Format(DueLayout))
	} else {
		m.due.SetValue("")
	}
	m.title.SetValue(s.Title)
	m.description.SetValue(s.Description)
	return m.focusField(fieldTitle)
}

// Close hides the overlay without emitting anything.
func (m *Model) Close() {
	m.visible = false
	m.title.Blur()
	m.description.Blur()
	m.due.Blur()
}

func (m Model) Visible() bool { return m.visible }

func (m Model) Mode() string { return m.mode }

func (m *Model) SetWidth(w int) {
	m.width = w
	inner := w - 8
	if inner < 20 {
		inner = 60
	}
	m.title.Width = inner
	m.description.SetWidth(inner)
	m.due.Width = len(DueLayout) + 1
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.Close()
			return m, func() tea.Msg { return CancelMsg{} }
		case "ctrl+s":
			submit := m.submit()
			return m, func() tea.Msg { return submit }
		case "tab":
			return m, m.focusField((m.focus + 1) % m.fieldCount())
		case "shift+tab":
			return m, m.focusField((m.focus - 1 + m.fieldCount()) % m.fieldCount())
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldDescription:
		m.description, cmd = m.description.Update(msg)
	case fieldDue:
		m.due, cmd = m.due.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	if !m.visible {
		return ""
	}
	heading := "New task"
	if m.mode == "edit" {
		heading = "Edit task"
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render(heading) + "\n\n")
	sb.WriteString(m.label("Title", fieldTitle) + "\n" + m.title.View() + "\n\n")
	sb.WriteString(m.label("Description", fieldDescription) + "\n" + m.description.View() + "\n")
	if m.dueEditable {
		sb.WriteString("\n" + m.label("Due", fieldDue) + "  " + m.due.View() + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("tab: next field  ctrl+s: save  esc: cancel"))

	w := m.width
	if w < 20 {
		w = 70
	}
	return boxStyle.Width(w - 2).Render(sb.String())
}

func (m Model) fieldCount() int {
	if m.dueEditable {
		return 3
	}
	return 2
}

func (m Model) label(text string, field int) string {
	if m.focus == field {
		return focusStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m *Model) focusField(field int) tea.Cmd {
	m.focus = field
	m.title.Blur()
	m.description.Blur()
	m.due.Blur()
	switch field {
	case fieldDescription:
		return m.description.Focus()
	case fieldDue:
		return m.due.Focus()
	default:
		return m.title.Focus()
	}
}

func (m Model) submit() SubmitMsg {
	draft := taskdto.DraftInput{
		Title:       m.title.Value(),
		Description: m.description.Value(),
	}
	if !m.dueEditable {
		return SubmitMsg{Draft: draft}
	}
	raw := strings.TrimSpace(m.due.Value())
	if raw == "" {
		return SubmitMsg{Draft: draft}
	}
	due, err := time.ParseInLocation(DueLayout, raw, m.loc)
	if err != nil {
		return SubmitMsg{Draft: draft, Err: fmt.Errorf("due must look like %s", DueLayout)}
	}
	draft.DueAt = due
	return SubmitMsg{Draft: draft}
}
