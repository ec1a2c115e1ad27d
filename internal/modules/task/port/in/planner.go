package in

import (
	"context"
	"time"

	"daytask/internal/modules/task/dto"
)

type Usecase interface {
	Week() dto.WeekOutput
	Snapshot() dto.SnapshotOutput
	TasksForDay(ctx context.Context, day time.Time) (dto.DayTasksOutput, error)
	DayTasks(ctx context.Context) (dto.DayTasksOutput, error)

	SelectDay(day time.Time) dto.SnapshotOutput
	OpenCreate() (dto.SessionOutput, error)
	OpenEdit(ctx context.Context, id string) (dto.SessionOutput, error)
	SetDraft(input dto.DraftInput) (dto.SessionOutput, error)
	Save(ctx context.Context) (dto.SaveOutput, error)
	Cancel() error
	Complete(ctx context.Context, id string) (dto.TaskOutput, error)
	Delete(ctx context.Context, id string) error
	ExportDay(ctx context.Context, day time.Time) (dto.ExportOutput, error)

	Subscribe(fn func(dto.SnapshotOutput)) func()
}
