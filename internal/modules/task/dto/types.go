package dto

import "time"

type TaskOutput struct {
	ID          string
	Title       string
	Description string
	DueAt       time.Time
	Completed   bool
	CurrentHour bool
	// Editable is false for tasks due before today.
	Editable bool
}

type DayOutput struct {
	Date     time.Time
	Selected bool
	Today    bool
}

type WeekOutput struct {
	Days []DayOutput
}

type DayTasksOutput struct {
	Day     time.Time
	Tasks   []TaskOutput
	Queried bool
}

// DraftInput replaces the composer fields. A zero DueAt keeps the current due.
type DraftInput struct {
	Title       string
	Description string
	DueAt       time.Time
}

type SessionOutput struct {
	State       string
	Mode        string
	Title       string
	Description string
	DueAt       time.Time
	DueEditable bool
}

// SnapshotOutput is the planner state at one point. Seq grows with every
// snapshot taken, so a consumer can drop one that arrives late.
type SnapshotOutput struct {
	Seq          uint64
	Now          time.Time
	CurrentDay   time.Time
	Week         WeekOutput
	EditTask     *TaskOutput
	ComposerOpen bool
	Session      SessionOutput
}

type SaveOutput struct {
	Task    TaskOutput
	Created bool
}

type ExportOutput struct {
	Path  string
	Day   time.Time
	Count int
}
