package out

import (
	"context"
	"time"

	"daytask/internal/modules/task/domain"
)

// TaskStore persists tasks. Query is half-open [start, end) on DueAt and
// returns tasks in no particular order. Missing ids yield apperrors.ErrNotFound.
type TaskStore interface {
	Create(ctx context.Context, task domain.NewTask) (domain.Task, error)
	Update(ctx context.Context, id, title, description string) error
	SetCompleted(ctx context.Context, id string, completed bool) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, start, end time.Time) ([]domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
}

type AgendaWriter interface {
	Write(ctx context.Context, day time.Time, tasks []domain.Task) (string, error)
}
