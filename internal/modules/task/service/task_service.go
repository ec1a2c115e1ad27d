package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"daytask/internal/modules/task/domain"
	taskout "daytask/internal/modules/task/port/out"
	apperrors "daytask/internal/platform/errors"
)

type TaskService struct {
	store taskout.TaskStore
}

func NewTaskService(store taskout.TaskStore) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) Create(ctx context.Context, draft domain.Draft) (domain.Task, error) {
	input := domain.NewTask{
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		DueAt:       draft.DueAt,
	}
	if err := input.Validate(); err != nil {
		return domain.Task{}, err
	}
	task, err := s.store.Create(ctx, input)
	if err != nil {
		return domain.Task{}, storeErr("create task", err)
	}
	return task, nil
}

// Update rewrites title and description. DueAt is never touched.
func (s *TaskService) Update(ctx context.Context, target domain.Task, draft domain.Draft) (domain.Task, error) {
	title := strings.TrimSpace(draft.Title)
	description := strings.TrimSpace(draft.Description)
	if err := domain.ValidateFields(title, description); err != nil {
		return domain.Task{}, err
	}
	if err := s.store.Update(ctx, target.ID, title, description); err != nil {
		return domain.Task{}, storeErr("update task", err)
	}
	target.Title = title
	target.Description = description
	return target, nil
}

func (s *TaskService) Complete(ctx context.Context, id string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, domain.ValidationError{Field: "id"}
	}
	if err := s.store.SetCompleted(ctx, id, true); err != nil {
		return domain.Task{}, storeErr("complete task", err)
	}
	return s.Get(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationError{Field: "id"}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return storeErr("delete task", err)
	}
	return nil
}

func (s *TaskService) Get(ctx context.Context, id string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, domain.ValidationError{Field: "id"}
	}
	task, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Task{}, storeErr("get task", err)
	}
	return task, nil
}

// storeErr tags adapter failures with ErrStore. Not-found passes through
// untagged so callers can tell a missing task from a broken store.
func storeErr(op string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", apperrors.ErrStore, op, err)
}
