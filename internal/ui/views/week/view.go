package week

import (
	"github.com/charmbracelet/lipgloss"

	taskdto "daytask/internal/modules/task/dto"
	"daytask/internal/ui/theme"
)

// Model renders the seven-day strip. It holds no behaviour of its own; the
// app model pushes a fresh week after every planner change.
type Model struct {
	week  taskdto.WeekOutput
	width int
}

func New() Model { return Model{} }

func (m *Model) SetWeek(w taskdto.WeekOutput) { m.week = w }

func (m *Model) SetWidth(w int) { m.width = w }

func (m Model) View() string {
	if len(m.week.Days) == 0 {
		return ""
	}
	cellW := 0
	if m.width > 0 {
		cellW = m.width / len(m.week.Days)
	}

	cells := make([]string, len(m.week.Days))
	for i, d := range m.week.Days {
		cells[i] = renderDay(d, cellW)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// Label formats a day the way the strip shows it, "Mon" above "02".
func Label(d taskdto.DayOutput) string {
	mark := " "
	if d.Today {
		mark = "*"
	}
	return d.Date.Format("Mon") + "\n" + d.Date.Format("02") + mark
}

func renderDay(d taskdto.DayOutput, width int) string {
	style := theme.Day
	switch {
	case d.Selected:
		style = theme.Selected
	case d.Today:
		style = theme.Today
	}
	if width > 2 {
		style = style.Width(width - 1).Align(lipgloss.Center)
	}
	return style.Render(Label(d))
}
