package domain

import "time"

// Selection is the in-memory browsing state. It is never persisted.
type Selection struct {
	CurrentDay   time.Time
	EditTask     *Task
	ComposerOpen bool
}

func NewSelection(now time.Time) Selection {
	return Selection{CurrentDay: now}
}

func (s *Selection) ClearEdit() {
	s.EditTask = nil
}
