package domain

import (
	"strings"
	"time"

	apperrors "daytask/internal/platform/errors"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateComposing
	StateCommitting
	StateCancelled
)

func (s SessionState) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateCommitting:
		return "committing"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

type EditMode int

const (
	ModeCreate EditMode = iota
	ModeEdit
)

func (m EditMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

type Draft struct {
	Title       string
	Description string
	DueAt       time.Time
}

// EditSession is the create/edit state machine for a single task form.
//
//	Idle -> Composing(Create|Edit) -> Committing -> Idle
//	Composing -> Cancelled -> Idle
//
// Edit may be entered from any state. A failed commit falls back to
// Composing with the draft intact.
type EditSession struct {
	state  SessionState
	mode   EditMode
	target Task
	draft  Draft
}

func (s *EditSession) State() SessionState { return s.state }

func (s *EditSession) Mode() EditMode { return s.mode }

func (s *EditSession) Draft() Draft { return s.draft }

// Target is the task being edited; ok is false in create mode or when idle.
func (s *EditSession) Target() (Task, bool) {
	if s.mode != ModeEdit || (s.state != StateComposing && s.state != StateCommitting) {
		return Task{}, false
	}
	return s.target, true
}

// DueEditable is false once the task exists.
func (s *EditSession) DueEditable() bool {
	return s.mode == ModeCreate
}

func (s *EditSession) OpenCreate(defaultDue time.Time) error {
	if s.state == StateComposing || s.state == StateCommitting {
		return apperrors.ErrComposerOpen
	}
	s.state = StateComposing
	s.mode = ModeCreate
	s.target = Task{}
	s.draft = Draft{DueAt: defaultDue}
	return nil
}

func (s *EditSession) OpenEdit(task Task) {
	s.state = StateComposing
	s.mode = ModeEdit
	s.target = task
	s.draft = Draft{Title: task.Title, Description: task.Description, DueAt: task.DueAt}
}

func (s *EditSession) SetTitle(title string) error {
	if s.state != StateComposing {
		return apperrors.ErrNotComposing
	}
	s.draft.Title = title
	return nil
}

func (s *EditSession) SetDescription(description string) error {
	if s.state != StateComposing {
		return apperrors.ErrNotComposing
	}
	s.draft.Description = description
	return nil
}

func (s *EditSession) SetDueAt(due time.Time) error {
	if s.state != StateComposing {
		return apperrors.ErrNotComposing
	}
	if !s.DueEditable() {
		if due.Equal(s.target.DueAt) {
			return nil
		}
		return apperrors.ErrDueReadOnly
	}
	s.draft.DueAt = due
	return nil
}

// BeginCommit validates the draft and enters Committing. On a validation
// error the session stays in Composing.
func (s *EditSession) BeginCommit() (Draft, error) {
	if s.state != StateComposing {
		return Draft{}, apperrors.ErrNotComposing
	}
	if err := ValidateFields(s.draft.Title, s.draft.Description); err != nil {
		return Draft{}, err
	}
	if s.mode == ModeCreate && s.draft.DueAt.IsZero() {
		return Draft{}, ValidationError{Field: "due date"}
	}
	s.state = StateCommitting
	return Draft{
		Title:       strings.TrimSpace(s.draft.Title),
		Description: strings.TrimSpace(s.draft.Description),
		DueAt:       s.draft.DueAt,
	}, nil
}

func (s *EditSession) CommitSucceeded() {
	if s.state != StateCommitting {
		return
	}
	s.reset()
}

func (s *EditSession) CommitFailed() {
	if s.state == StateCommitting {
		s.state = StateComposing
	}
}

// Cancel discards the draft. The session rests in Cancelled until Settle.
func (s *EditSession) Cancel() error {
	if s.state != StateComposing {
		return apperrors.ErrNotComposing
	}
	s.reset()
	s.state = StateCancelled
	return nil
}

func (s *EditSession) Settle() {
	if s.state == StateCancelled {
		s.state = StateIdle
	}
}

func (s *EditSession) reset() {
	s.state = StateIdle
	s.mode = ModeCreate
	s.target = Task{}
	s.draft = Draft{}
}
