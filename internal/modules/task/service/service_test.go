package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"daytask/internal/modules/task/domain"
	"daytask/internal/modules/task/service"
	"daytask/internal/platform/clock"
	apperrors "daytask/internal/platform/errors"
)

type fakeStore struct {
	tasks    []domain.Task
	queries  [][2]time.Time
	creates  int
	updates  int
	failWith error
}

func (f *fakeStore) Create(_ context.Context, in domain.NewTask) (domain.Task, error) {
	f.creates++
	if f.failWith != nil {
		return domain.Task{}, f.failWith
	}
	task := domain.Task{ID: "new", Title: in.Title, Description: in.Description, DueAt: in.DueAt}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeStore) Update(_ context.Context, id, title, description string) error {
	f.updates++
	if f.failWith != nil {
		return f.failWith
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Title = title
			f.tasks[i].Description = description
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeStore) SetCompleted(_ context.Context, id string, completed bool) error {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Completed = completed
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeStore) Delete(context.Context, string) error { return f.failWith }

func (f *fakeStore) Query(_ context.Context, start, end time.Time) ([]domain.Task, error) {
	f.queries = append(f.queries, [2]time.Time{start, end})
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []domain.Task{}
	for _, task := range f.tasks {
		if !task.DueAt.Before(start) && task.DueAt.Before(end) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Task, error) {
	for _, task := range f.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return domain.Task{}, apperrors.ErrNotFound
}

func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestTasksForDayResolvesEachTaskToItsOwnDay(t *testing.T) {
	t.Parallel()
	store := &fakeStore{tasks: []domain.Task{
		{ID: "a", DueAt: at(10, 9)},
		{ID: "b", DueAt: at(11, 9)},
	}}
	svc := service.NewScheduleService(clock.Func(func() time.Time { return at(10, 12) }), domain.Calendar{Location: time.UTC}, store)

	day10, err := svc.TasksForDay(context.Background(), at(10, 18))
	if err != nil {
		t.Fatalf("tasks for day: %v", err)
	}
	if len(day10) != 1 || day10[0].ID != "a" {
		t.Fatalf("expected only a on the 10th, got %+v", day10)
	}
	day11, err := svc.TasksForDay(context.Background(), at(11, 0))
	if err != nil {
		t.Fatalf("tasks for day: %v", err)
	}
	if len(day11) != 1 || day11[0].ID != "b" {
		t.Fatalf("expected only b on the 11th, got %+v", day11)
	}
	q := store.queries[0]
	if !q[0].Equal(at(10, 0)) || !q[1].Equal(at(11, 0)) {
		t.Fatalf("unexpected query bounds %v", q)
	}
}

func TestTasksForDayExcludesEndBoundAndSortsDescending(t *testing.T) {
	t.Parallel()
	store := &fakeStore{tasks: []domain.Task{
		{ID: "morning", DueAt: at(10, 8)},
		{ID: "midnight", DueAt: at(10, 0)},
		{ID: "evening", DueAt: at(10, 21)},
		{ID: "next", DueAt: at(11, 0)},
	}}
	svc := service.NewScheduleService(clock.Func(func() time.Time { return at(10, 12) }), domain.Calendar{Location: time.UTC}, store)
	tasks, err := svc.TasksForDay(context.Background(), at(10, 5))
	if err != nil {
		t.Fatalf("tasks for day: %v", err)
	}
	want := []string{"evening", "morning", "midnight"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %+v", len(want), tasks)
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, tasks[i].ID, id)
		}
	}
}

func TestTasksForDayWrapsStoreError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk gone")
	svc := service.NewScheduleService(clock.SystemClock{}, domain.DefaultCalendar(), &fakeStore{failWith: boom})
	if _, err := svc.TasksForDay(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestWeekRecomputesAfterMidnight(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 16, 23, 59, 0, 0, time.UTC) // saturday
	svc := service.NewScheduleService(clock.Func(func() time.Time { return now }), domain.Calendar{Location: time.UTC, WeekStart: time.Sunday}, &fakeStore{})

	before := svc.Week()
	if !before.First().Equal(at(10, 0)) {
		t.Fatalf("unexpected first day %v", before.First())
	}
	if again := svc.Week(); again != before {
		t.Fatalf("week should be stable within a day")
	}
	now = time.Date(2024, 3, 17, 0, 1, 0, 0, time.UTC) // sunday
	after := svc.Week()
	if !after.First().Equal(at(17, 0)) {
		t.Fatalf("week should roll over at midnight, got %v", after.First())
	}
}

func TestCreateRejectsEmptyFieldsWithoutCallingStore(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	svc := service.NewTaskService(store)
	_, err := svc.Create(context.Background(), domain.Draft{Title: "Gym", Description: " ", DueAt: at(10, 7)})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if store.creates != 0 {
		t.Fatalf("store must not be called, got %d creates", store.creates)
	}
}

func TestUpdateKeepsDueAndTagsStoreErrors(t *testing.T) {
	t.Parallel()
	store := &fakeStore{tasks: []domain.Task{{ID: "t1", Title: "A", Description: "d", DueAt: at(10, 9)}}}
	svc := service.NewTaskService(store)
	updated, err := svc.Update(context.Background(), store.tasks[0], domain.Draft{Title: "B", Description: "d", DueAt: at(12, 9)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "B" || !updated.DueAt.Equal(at(10, 9)) {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !store.tasks[0].DueAt.Equal(at(10, 9)) {
		t.Fatalf("stored due changed: %v", store.tasks[0].DueAt)
	}

	store.failWith = errors.New("locked")
	if _, err := svc.Update(context.Background(), store.tasks[0], domain.Draft{Title: "C", Description: "d"}); !errors.Is(err, apperrors.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestCompleteThenGetShowsCompleted(t *testing.T) {
	t.Parallel()
	store := &fakeStore{tasks: []domain.Task{{ID: "t1", Title: "A", Description: "d", DueAt: at(10, 9)}}}
	svc := service.NewTaskService(store)
	task, err := svc.Complete(context.Background(), "t1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !task.Completed {
		t.Fatalf("expected completed task")
	}
	if _, err := svc.Complete(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrStore) {
		t.Fatalf("expected plain not found, got %v", err)
	}
}
