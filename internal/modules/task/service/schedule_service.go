package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daytask/internal/modules/task/domain"
	taskout "daytask/internal/modules/task/port/out"
	"daytask/internal/platform/clock"
)

// ScheduleService answers the read side: which days make up the week and
// which tasks fall on a day.
type ScheduleService struct {
	clock clock.Clock
	cal   domain.Calendar
	store taskout.TaskStore

	mu      sync.Mutex
	week    domain.WeekWindow
	weekFor time.Time
}

func NewScheduleService(clock clock.Clock, cal domain.Calendar, store taskout.TaskStore) *ScheduleService {
	return &ScheduleService{clock: clock, cal: cal, store: store}
}

func (s *ScheduleService) Calendar() domain.Calendar {
	return s.cal
}

func (s *ScheduleService) Now() time.Time {
	return s.cal.In(s.clock.Now())
}

// Week returns the window for the current date. It is cached per calendar
// day and recomputed once the clock crosses midnight.
func (s *ScheduleService) Week() domain.WeekWindow {
	today := s.cal.StartOfDay(s.clock.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weekFor.IsZero() || !s.weekFor.Equal(today) {
		s.week = domain.ComputeWeek(s.cal, today)
		s.weekFor = today
	}
	return s.week
}

func (s *ScheduleService) TasksForDay(ctx context.Context, day time.Time) ([]domain.Task, error) {
	start, end := s.cal.DayRange(day)
	tasks, err := s.store.Query(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("query tasks for %s: %w", start.Format(time.DateOnly), err)
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		// stores are trusted for the range, but a misbehaving one must not leak other days
		if task.DueAt.Before(start) || !task.DueAt.Before(end) {
			continue
		}
		out = append(out, task)
	}
	domain.SortNewestFirst(out)
	return out, nil
}

func (s *ScheduleService) IsCurrentHour(task domain.Task) bool {
	return domain.IsCurrentHour(s.cal, task, s.clock.Now())
}

func (s *ScheduleService) IsToday(day time.Time) bool {
	return domain.IsToday(s.cal, day, s.clock.Now())
}

func (s *ScheduleService) IsEditable(task domain.Task) bool {
	return domain.IsEditable(s.cal, task, s.clock.Now())
}
