package in

import (
	"context"
	"errors"
	"time"

	"daytask/internal/modules/task/dto"
	taskin "daytask/internal/modules/task/port/in"
)

// CLIHandler drives the planner one command at a time. Add and Edit walk the
// same open/draft/save path the TUI composer does.
type CLIHandler struct {
	usecase taskin.Usecase
}

func NewCLIHandler(usecase taskin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Week() dto.WeekOutput {
	return h.usecase.Week()
}

func (h CLIHandler) Day(ctx context.Context, day time.Time) (dto.DayTasksOutput, error) {
	if day.IsZero() {
		return h.usecase.DayTasks(ctx)
	}
	return h.usecase.TasksForDay(ctx, day)
}

// Add creates a task. A zero due falls back to now on the selected day.
func (h CLIHandler) Add(ctx context.Context, title, description string, due time.Time) (dto.TaskOutput, error) {
	if !due.IsZero() {
		h.usecase.SelectDay(due)
	}
	if _, err := h.usecase.OpenCreate(); err != nil {
		return dto.TaskOutput{}, err
	}
	return h.commit(ctx, dto.DraftInput{Title: title, Description: description, DueAt: due})
}

func (h CLIHandler) Edit(ctx context.Context, id, title, description string) (dto.TaskOutput, error) {
	session, err := h.usecase.OpenEdit(ctx, id)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	if title == "" {
		title = session.Title
	}
	if description == "" {
		description = session.Description
	}
	return h.commit(ctx, dto.DraftInput{Title: title, Description: description})
}

func (h CLIHandler) Complete(ctx context.Context, id string) (dto.TaskOutput, error) {
	return h.usecase.Complete(ctx, id)
}

func (h CLIHandler) Delete(ctx context.Context, id string) error {
	return h.usecase.Delete(ctx, id)
}

func (h CLIHandler) Export(ctx context.Context, day time.Time) (dto.ExportOutput, error) {
	return h.usecase.ExportDay(ctx, day)
}

func (h CLIHandler) commit(ctx context.Context, draft dto.DraftInput) (dto.TaskOutput, error) {
	if _, err := h.usecase.SetDraft(draft); err != nil {
		return dto.TaskOutput{}, errors.Join(err, h.usecase.Cancel())
	}
	saved, err := h.usecase.Save(ctx)
	if err != nil {
		return dto.TaskOutput{}, errors.Join(err, h.usecase.Cancel())
	}
	return saved.Task, nil
}
