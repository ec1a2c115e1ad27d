package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	taskadapter "daytask/internal/modules/task/adapter/out"
	"daytask/internal/modules/task/domain"
	"daytask/internal/modules/task/dto"
	taskin "daytask/internal/modules/task/port/in"
	"daytask/internal/modules/task/service"
	"daytask/internal/modules/task/usecase"
	"daytask/internal/platform/clock"
	apperrors "daytask/internal/platform/errors"
)

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("t%d", s.n)
}

// countingStore records mutations and can be told to fail them.
type countingStore struct {
	*taskadapter.MemoryTaskStore
	mutations int
	fail      error
}

func (c *countingStore) Create(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	c.mutations++
	if c.fail != nil {
		return domain.Task{}, c.fail
	}
	return c.MemoryTaskStore.Create(ctx, in)
}

func (c *countingStore) Update(ctx context.Context, id, title, description string) error {
	c.mutations++
	if c.fail != nil {
		return c.fail
	}
	return c.MemoryTaskStore.Update(ctx, id, title, description)
}

type recordingAgenda struct {
	day   time.Time
	tasks []domain.Task
}

func (r *recordingAgenda) Write(_ context.Context, day time.Time, tasks []domain.Task) (string, error) {
	r.day = day
	r.tasks = tasks
	return "/agenda/" + day.Format(time.DateOnly) + ".md", nil
}

type fixture struct {
	uc     taskin.Usecase
	store  *countingStore
	agenda *recordingAgenda
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	clk := clock.Func(func() time.Time { return now })
	store := &countingStore{MemoryTaskStore: taskadapter.NewMemoryTaskStore(clk, &seqID{})}
	cal := domain.Calendar{Location: time.UTC, WeekStart: time.Sunday}
	agenda := &recordingAgenda{}
	uc := usecase.NewPlanner(service.NewScheduleService(clk, cal, store), service.NewTaskService(store), agenda, nil)
	return fixture{uc: uc, store: store, agenda: agenda}
}

func (f fixture) create(t *testing.T, title, description string, due time.Time) dto.TaskOutput {
	t.Helper()
	if _, err := f.uc.OpenCreate(); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if _, err := f.uc.SetDraft(dto.DraftInput{Title: title, Description: description, DueAt: due}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	saved, err := f.uc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return saved.Task
}

func TestPlannerTasksResolveToTheirOwnDays(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	f.create(t, "Sunday", "first", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	f.create(t, "Monday", "second", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))

	sunday, err := f.uc.DayTasks(context.Background())
	if err != nil {
		t.Fatalf("day tasks: %v", err)
	}
	if len(sunday.Tasks) != 1 || sunday.Tasks[0].Title != "Sunday" {
		t.Fatalf("unexpected sunday tasks %+v", sunday.Tasks)
	}

	snap := f.uc.SelectDay(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if snap.CurrentDay.Day() != 11 {
		t.Fatalf("selection not moved: %v", snap.CurrentDay)
	}
	monday, err := f.uc.DayTasks(context.Background())
	if err != nil {
		t.Fatalf("day tasks: %v", err)
	}
	if len(monday.Tasks) != 1 || monday.Tasks[0].Title != "Monday" {
		t.Fatalf("unexpected monday tasks %+v", monday.Tasks)
	}
}

func TestPlannerWeekMarksSelectedAndToday(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC))
	f.uc.SelectDay(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	week := f.uc.Week()
	if len(week.Days) != domain.DaysPerWeek {
		t.Fatalf("expected 7 days, got %d", len(week.Days))
	}
	for _, day := range week.Days {
		if day.Today != (day.Date.Day() == 13) {
			t.Fatalf("today flag wrong for %v", day.Date)
		}
		if day.Selected != (day.Date.Day() == 15) {
			t.Fatalf("selected flag wrong for %v", day.Date)
		}
	}
}

func TestPlannerCreateDefaultsDueToSelectedDayAtCurrentTime(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 14, 25, 0, 0, time.UTC))
	f.uc.SelectDay(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	session, err := f.uc.OpenCreate()
	if err != nil {
		t.Fatalf("open create: %v", err)
	}
	want := time.Date(2024, 3, 12, 14, 25, 0, 0, time.UTC)
	if !session.DueAt.Equal(want) || !session.DueEditable {
		t.Fatalf("unexpected default session %+v", session)
	}
	if _, err := f.uc.OpenCreate(); !errors.Is(err, apperrors.ErrComposerOpen) {
		t.Fatalf("expected ErrComposerOpen, got %v", err)
	}
}

func TestPlannerRejectsEmptyFieldsWithoutStoreCall(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	if _, err := f.uc.OpenCreate(); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if _, err := f.uc.SetDraft(dto.DraftInput{Title: "Gym", Description: ""}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	_, err := f.uc.Save(context.Background())
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if f.store.mutations != 0 {
		t.Fatalf("store must not be touched, got %d mutations", f.store.mutations)
	}
	snap := f.uc.Snapshot()
	if snap.Session.State != "composing" || !snap.ComposerOpen {
		t.Fatalf("expected composer to stay open, got %+v", snap.Session)
	}
}

func TestPlannerEditThenCancelClearsEditTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	task := f.create(t, "A", "desc", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	session, err := f.uc.OpenEdit(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if session.Title != "A" || session.Mode != "edit" || session.DueEditable {
		t.Fatalf("unexpected edit session %+v", session)
	}
	if snap := f.uc.Snapshot(); snap.EditTask == nil || snap.EditTask.ID != task.ID {
		t.Fatalf("edit task not selected: %+v", snap.EditTask)
	}
	if err := f.uc.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	snap := f.uc.Snapshot()
	if snap.EditTask != nil || snap.ComposerOpen {
		t.Fatalf("cancel should clear edit state, got %+v", snap)
	}
	created, err := f.uc.OpenCreate()
	if err != nil {
		t.Fatalf("open create after cancel: %v", err)
	}
	if created.Title != "" || created.Description != "" || created.Mode != "create" {
		t.Fatalf("create after cancel should be empty, got %+v", created)
	}
}

func TestPlannerEditKeepsDueAt(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	due := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	task := f.create(t, "A", "desc", due)

	if _, err := f.uc.OpenEdit(context.Background(), task.ID); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if _, err := f.uc.SetDraft(dto.DraftInput{Title: "B", Description: "desc", DueAt: due.Add(time.Hour)}); !errors.Is(err, apperrors.ErrDueReadOnly) {
		t.Fatalf("expected ErrDueReadOnly, got %v", err)
	}
	if _, err := f.uc.SetDraft(dto.DraftInput{Title: "B", Description: "desc"}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	saved, err := f.uc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Created || saved.Task.Title != "B" || !saved.Task.DueAt.Equal(due) {
		t.Fatalf("unexpected save %+v", saved)
	}
	if snap := f.uc.Snapshot(); snap.EditTask != nil || snap.ComposerOpen {
		t.Fatalf("save should clear edit state")
	}
	day, _ := f.uc.DayTasks(context.Background())
	if len(day.Tasks) != 1 || day.Tasks[0].Title != "B" || !day.Tasks[0].DueAt.Equal(due) {
		t.Fatalf("unexpected stored tasks %+v", day.Tasks)
	}
}

func TestPlannerCompleteShowsOnRequery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	task := f.create(t, "A", "desc", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	if _, err := f.uc.Complete(context.Background(), task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	day, err := f.uc.DayTasks(context.Background())
	if err != nil {
		t.Fatalf("day tasks: %v", err)
	}
	if !day.Tasks[0].Completed {
		t.Fatalf("expected completed task on requery")
	}
}

func TestPlannerStoreFailurePreservesDraft(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	f.store.fail = errors.New("disk full")
	if _, err := f.uc.OpenCreate(); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if _, err := f.uc.SetDraft(dto.DraftInput{Title: "Keep", Description: "me"}); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	_, err := f.uc.Save(context.Background())
	if !errors.Is(err, apperrors.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	snap := f.uc.Snapshot()
	if snap.Session.State != "composing" || snap.Session.Title != "Keep" || snap.Session.Description != "me" {
		t.Fatalf("draft not preserved: %+v", snap.Session)
	}

	f.store.fail = nil
	if _, err := f.uc.Save(context.Background()); err != nil {
		t.Fatalf("retry save: %v", err)
	}
}

func TestPlannerDeletingEditTargetClosesComposer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	task := f.create(t, "A", "desc", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	if _, err := f.uc.OpenEdit(context.Background(), task.ID); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if err := f.uc.Delete(context.Background(), task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap := f.uc.Snapshot()
	if snap.ComposerOpen || snap.EditTask != nil || snap.Session.State != "idle" {
		t.Fatalf("composer should close after deleting its task, got %+v", snap)
	}
	if err := f.uc.Delete(context.Background(), task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestPlannerHighlightsCurrentHour(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC))
	f.create(t, "Now", "x", time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC))
	f.create(t, "Later", "y", time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))
	day, err := f.uc.DayTasks(context.Background())
	if err != nil {
		t.Fatalf("day tasks: %v", err)
	}
	if day.Tasks[0].Title != "Later" || day.Tasks[0].CurrentHour {
		t.Fatalf("unexpected first task %+v", day.Tasks[0])
	}
	if day.Tasks[1].Title != "Now" || !day.Tasks[1].CurrentHour {
		t.Fatalf("unexpected second task %+v", day.Tasks[1])
	}
}

func TestPlannerSubscribersSeeEveryChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	var seen []dto.SnapshotOutput
	unsubscribe := f.uc.Subscribe(func(s dto.SnapshotOutput) { seen = append(seen, s) })

	f.uc.SelectDay(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if _, err := f.uc.OpenCreate(); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if !seen[1].ComposerOpen || seen[0].CurrentDay.Day() != 11 {
		t.Fatalf("unexpected notifications %+v", seen)
	}
	unsubscribe()
	_ = f.uc.Cancel()
	if len(seen) != 2 {
		t.Fatalf("unsubscribed callback still called")
	}
}

func TestPlannerSubscriberMayReadState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	var week dto.WeekOutput
	f.uc.Subscribe(func(dto.SnapshotOutput) { week = f.uc.Week() })
	f.uc.SelectDay(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	if len(week.Days) != domain.DaysPerWeek {
		t.Fatalf("subscriber could not read state")
	}
}

func TestPlannerExportDayUsesSelectedDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	f.create(t, "A", "desc", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	f.create(t, "B", "desc", time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC))
	out, err := f.uc.ExportDay(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Count != 2 || out.Path != "/agenda/2024-03-10.md" {
		t.Fatalf("unexpected export %+v", out)
	}
	if f.agenda.tasks[0].Title != "B" {
		t.Fatalf("agenda should receive tasks newest first, got %+v", f.agenda.tasks)
	}
}

func TestPlannerPresentsSQLiteTasksInCalendarLocation(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, loc)
	clk := clock.Func(func() time.Time { return now })
	store, err := taskadapter.NewSQLiteTaskStore(filepath.Join(t.TempDir(), "tasks.db"), clk, &seqID{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cal := domain.Calendar{Location: loc, WeekStart: time.Sunday}
	uc := usecase.NewPlanner(service.NewScheduleService(clk, cal, store), service.NewTaskService(store), nil, nil)
	f := fixture{uc: uc}

	f.create(t, "Standup", "daily sync", time.Date(2024, 3, 10, 9, 0, 0, 0, loc))
	out, err := uc.TasksForDay(context.Background(), now)
	if err != nil {
		t.Fatalf("tasks for day: %v", err)
	}
	if len(out.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(out.Tasks))
	}
	due := out.Tasks[0].DueAt
	if due.Format("15:04") != "09:00" || due.Location() != loc {
		t.Fatalf("due should read 09:00 in %s, got %s %s", loc, due.Format("15:04"), due.Location())
	}

	session, err := uc.OpenEdit(context.Background(), out.Tasks[0].ID)
	if err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if session.DueAt.Format("15:04") != "09:00" {
		t.Fatalf("edit session due should read 09:00, got %s", session.DueAt.Format("15:04"))
	}
}

func TestPlannerCancelSettlesToIdle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	var states []string
	f.uc.Subscribe(func(s dto.SnapshotOutput) { states = append(states, s.Session.State) })

	if _, err := f.uc.OpenCreate(); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := f.uc.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.uc.Snapshot().Session.State; got != "idle" {
		t.Fatalf("expected idle after cancel, got %s", got)
	}
	want := []string{"composing", "cancelled", "idle"}
	if fmt.Sprint(states) != fmt.Sprint(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
}

func TestPlannerSnapshotSequenceGrows(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	first := f.uc.Snapshot()
	selected := f.uc.SelectDay(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	last := f.uc.Snapshot()
	if !(first.Seq < selected.Seq && selected.Seq < last.Seq) {
		t.Fatalf("sequence must grow: %d %d %d", first.Seq, selected.Seq, last.Seq)
	}
}

func TestPlannerDayQueryIsMarkedQueried(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	out, err := f.uc.DayTasks(context.Background())
	if err != nil {
		t.Fatalf("day tasks: %v", err)
	}
	if !out.Queried || len(out.Tasks) != 0 {
		t.Fatalf("expected a queried empty day, got %+v", out)
	}
	if (dto.DayTasksOutput{}).Queried {
		t.Fatalf("zero value must read as not queried")
	}
}

func TestPlannerMarksPastDaysNotEditable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	past := f.create(t, "Yesterday", "desc", time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	earlier := f.create(t, "This morning", "desc", time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC))
	future := f.create(t, "Tomorrow", "desc", time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC))
	if past.Editable {
		t.Fatalf("task due yesterday must not be editable")
	}
	if !earlier.Editable || !future.Editable {
		t.Fatalf("tasks due today or later must be editable: %+v %+v", earlier, future)
	}
}
