package out

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daytask/internal/modules/task/domain"
	"daytask/internal/platform/clock"
	apperrors "daytask/internal/platform/errors"
	"daytask/internal/platform/id"
)

// MemoryTaskStore is a process-local store for tests and --memory runs.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	clock clock.Clock
	idGen id.Generator
}

func NewMemoryTaskStore(clock clock.Clock, idGen id.Generator) *MemoryTaskStore {
	return &MemoryTaskStore{tasks: map[string]domain.Task{}, clock: clock, idGen: idGen}
}

func (s *MemoryTaskStore) Create(_ context.Context, input domain.NewTask) (domain.Task, error) {
	now := s.clock.Now()
	task := domain.Task{
		ID:          s.idGen.New(),
		Title:       input.Title,
		Description: input.Description,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := task.Validate(); err != nil {
		return domain.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return domain.Task{}, fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task
	return task, nil
}

func (s *MemoryTaskStore) Update(_ context.Context, id, title, description string) error {
	return s.modify(id, func(task *domain.Task) {
		task.Title = title
		task.Description = description
	})
}

func (s *MemoryTaskStore) SetCompleted(_ context.Context, id string, completed bool) error {
	return s.modify(id, func(task *domain.Task) {
		task.Completed = completed
	})
}

func (s *MemoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryTaskStore) Query(_ context.Context, start, end time.Time) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Task{}
	for _, task := range s.tasks {
		if !task.DueAt.Before(start) && task.DueAt.Before(end) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *MemoryTaskStore) Get(_ context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return task, nil
}

func (s *MemoryTaskStore) modify(id string, fn func(*domain.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	fn(&task)
	task.UpdatedAt = s.clock.Now()
	s.tasks[task.ID] = task
	return nil
}
