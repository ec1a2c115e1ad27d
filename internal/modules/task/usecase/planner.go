package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"daytask/internal/modules/task/domain"
	"daytask/internal/modules/task/dto"
	taskin "daytask/internal/modules/task/port/in"
	taskout "daytask/internal/modules/task/port/out"
	"daytask/internal/modules/task/service"
	apperrors "daytask/internal/platform/errors"
	"daytask/internal/platform/logging"
)

// Planner owns the selection and the edit session. Every action runs under
// one mutex; subscribers are called after it is released.
type Planner struct {
	mu       sync.Mutex
	schedule *service.ScheduleService
	tasks    *service.TaskService
	agenda   taskout.AgendaWriter
	logger   *slog.Logger

	selection domain.Selection
	session   domain.EditSession
	seq       uint64

	subMu   sync.Mutex
	subs    map[int]func(dto.SnapshotOutput)
	nextSub int
}

func NewPlanner(schedule *service.ScheduleService, tasks *service.TaskService, agenda taskout.AgendaWriter, logger *slog.Logger) taskin.Usecase {
	if logger == nil {
		logger = logging.Discard()
	}
	cal := schedule.Calendar()
	return &Planner{
		schedule:  schedule,
		tasks:     tasks,
		agenda:    agenda,
		logger:    logger,
		selection: domain.NewSelection(cal.StartOfDay(schedule.Now())),
		subs:      map[int]func(dto.SnapshotOutput){},
	}
}

func (p *Planner) Week() dto.WeekOutput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.weekLocked()
}

func (p *Planner) Snapshot() dto.SnapshotOutput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Planner) TasksForDay(ctx context.Context, day time.Time) (dto.DayTasksOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasksForDayLocked(ctx, day)
}

func (p *Planner) DayTasks(ctx context.Context) (dto.DayTasksOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasksForDayLocked(ctx, p.selection.CurrentDay)
}

func (p *Planner) SelectDay(day time.Time) dto.SnapshotOutput {
	var snap dto.SnapshotOutput
	_ = p.mutate(func() error {
		p.session.Settle()
		p.selection.CurrentDay = p.schedule.Calendar().StartOfDay(day)
		snap = p.snapshotLocked()
		return nil
	})
	return snap
}

// OpenCreate opens an empty form due on the selected day at the current
// clock time.
func (p *Planner) OpenCreate() (dto.SessionOutput, error) {
	var out dto.SessionOutput
	err := p.mutate(func() error {
		p.session.Settle()
		due := p.schedule.Calendar().At(p.selection.CurrentDay, p.schedule.Now())
		if err := p.session.OpenCreate(due); err != nil {
			return err
		}
		p.selection.ClearEdit()
		p.selection.ComposerOpen = true
		out = p.sessionLocked()
		return nil
	})
	return out, err
}

func (p *Planner) OpenEdit(ctx context.Context, id string) (dto.SessionOutput, error) {
	var out dto.SessionOutput
	err := p.mutate(func() error {
		task, err := p.tasks.Get(ctx, id)
		if err != nil {
			p.warn("open edit", err, "id", id)
			return err
		}
		p.session.OpenEdit(task)
		p.selection.EditTask = &task
		p.selection.ComposerOpen = true
		out = p.sessionLocked()
		return nil
	})
	return out, err
}

func (p *Planner) SetDraft(input dto.DraftInput) (dto.SessionOutput, error) {
	var out dto.SessionOutput
	err := p.mutate(func() error {
		if err := p.session.SetTitle(input.Title); err != nil {
			return err
		}
		if err := p.session.SetDescription(input.Description); err != nil {
			return err
		}
		if !input.DueAt.IsZero() {
			if err := p.session.SetDueAt(input.DueAt); err != nil {
				return err
			}
		}
		out = p.sessionLocked()
		return nil
	})
	return out, err
}

func (p *Planner) Save(ctx context.Context) (dto.SaveOutput, error) {
	var out dto.SaveOutput
	err := p.mutate(func() error {
		draft, err := p.session.BeginCommit()
		if err != nil {
			return err
		}
		var saved domain.Task
		created := p.session.Mode() == domain.ModeCreate
		if created {
			saved, err = p.tasks.Create(ctx, draft)
		} else {
			target, _ := p.session.Target()
			saved, err = p.tasks.Update(ctx, target, draft)
		}
		if err != nil {
			p.session.CommitFailed()
			p.warn("save task", err, "mode", p.session.Mode().String())
			return err
		}
		p.session.CommitSucceeded()
		p.selection.ClearEdit()
		p.selection.ComposerOpen = false
		p.logger.Debug("task saved", "id", saved.ID, "created", created)
		out = dto.SaveOutput{Task: p.taskOutput(saved), Created: created}
		return nil
	})
	return out, err
}

// Cancel discards the draft. Subscribers see the session as cancelled once,
// then it settles back to idle.
func (p *Planner) Cancel() error {
	err := p.mutate(func() error {
		if err := p.session.Cancel(); err != nil {
			return err
		}
		p.selection.ClearEdit()
		p.selection.ComposerOpen = false
		return nil
	})
	if err != nil {
		return err
	}
	return p.mutate(func() error {
		p.session.Settle()
		return nil
	})
}

func (p *Planner) Complete(ctx context.Context, id string) (dto.TaskOutput, error) {
	var out dto.TaskOutput
	err := p.mutate(func() error {
		task, err := p.tasks.Complete(ctx, id)
		if err != nil {
			p.warn("complete task", err, "id", id)
			return err
		}
		if p.selection.EditTask != nil && p.selection.EditTask.ID == id {
			p.selection.EditTask.Completed = true
		}
		out = p.taskOutput(task)
		return nil
	})
	return out, err
}

// Delete removes the task. Deleting the task under edit closes the composer.
func (p *Planner) Delete(ctx context.Context, id string) error {
	return p.mutate(func() error {
		if err := p.tasks.Delete(ctx, id); err != nil {
			p.warn("delete task", err, "id", id)
			return err
		}
		if target, ok := p.session.Target(); ok && target.ID == id {
			_ = p.session.Cancel()
			p.session.Settle()
			p.selection.ComposerOpen = false
		}
		if p.selection.EditTask != nil && p.selection.EditTask.ID == id {
			p.selection.ClearEdit()
		}
		return nil
	})
}

func (p *Planner) ExportDay(ctx context.Context, day time.Time) (dto.ExportOutput, error) {
	if p.agenda == nil {
		return dto.ExportOutput{}, fmt.Errorf("agenda export is not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if day.IsZero() {
		day = p.selection.CurrentDay
	}
	tasks, err := p.schedule.TasksForDay(ctx, day)
	if err != nil {
		p.warn("export day", err)
		return dto.ExportOutput{}, fmt.Errorf("%w: %w", apperrors.ErrStore, err)
	}
	path, err := p.agenda.Write(ctx, p.schedule.Calendar().StartOfDay(day), tasks)
	if err != nil {
		return dto.ExportOutput{}, fmt.Errorf("write agenda: %w", err)
	}
	p.logger.Info("agenda exported", "path", path, "tasks", len(tasks))
	return dto.ExportOutput{Path: path, Day: p.schedule.Calendar().StartOfDay(day), Count: len(tasks)}, nil
}

func (p *Planner) Subscribe(fn func(dto.SnapshotOutput)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	key := p.nextSub
	p.nextSub++
	p.subs[key] = fn
	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.subs, key)
	}
}

// mutate runs fn under the planner lock and then notifies subscribers with
// the resulting state, whether or not fn failed.
func (p *Planner) mutate(fn func() error) error {
	p.mu.Lock()
	err := fn()
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)
	return err
}

func (p *Planner) notify(snap dto.SnapshotOutput) {
	p.subMu.Lock()
	subs := make([]func(dto.SnapshotOutput), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (p *Planner) warn(op string, err error, attrs ...any) {
	if errors.Is(err, apperrors.ErrInvalidInput) {
		return
	}
	p.logger.Warn(op+" failed", append([]any{"error", err}, attrs...)...)
}

func (p *Planner) tasksForDayLocked(ctx context.Context, day time.Time) (dto.DayTasksOutput, error) {
	tasks, err := p.schedule.TasksForDay(ctx, day)
	if err != nil {
		p.warn("query day", err)
		return dto.DayTasksOutput{}, fmt.Errorf("%w: %w", apperrors.ErrStore, err)
	}
	out := dto.DayTasksOutput{
		Day:     p.schedule.Calendar().StartOfDay(day),
		Tasks:   make([]dto.TaskOutput, 0, len(tasks)),
		Queried: true,
	}
	for _, task := range tasks {
		out.Tasks = append(out.Tasks, p.taskOutput(task))
	}
	return out, nil
}

func (p *Planner) weekLocked() dto.WeekOutput {
	cal := p.schedule.Calendar()
	week := p.schedule.Week()
	out := dto.WeekOutput{Days: make([]dto.DayOutput, 0, domain.DaysPerWeek)}
	for _, day := range week.Days {
		out.Days = append(out.Days, dto.DayOutput{
			Date:     day,
			Selected: domain.IsSelectedDay(cal, day, p.selection.CurrentDay),
			Today:    p.schedule.IsToday(day),
		})
	}
	return out
}

func (p *Planner) snapshotLocked() dto.SnapshotOutput {
	p.seq++
	snap := dto.SnapshotOutput{
		Seq:          p.seq,
		Now:          p.schedule.Now(),
		CurrentDay:   p.selection.CurrentDay,
		Week:         p.weekLocked(),
		ComposerOpen: p.selection.ComposerOpen,
		Session:      p.sessionLocked(),
	}
	if p.selection.EditTask != nil {
		task := p.taskOutput(*p.selection.EditTask)
		snap.EditTask = &task
	}
	return snap
}

func (p *Planner) sessionLocked() dto.SessionOutput {
	draft := p.session.Draft()
	return dto.SessionOutput{
		State:       p.session.State().String(),
		Mode:        p.session.Mode().String(),
		Title:       draft.Title,
		Description: draft.Description,
		DueAt:       p.schedule.Calendar().In(draft.DueAt),
		DueEditable: p.session.DueEditable(),
	}
}

// taskOutput presents the task in the calendar's location; stores may hand
// back due times in UTC.
func (p *Planner) taskOutput(task domain.Task) dto.TaskOutput {
	return dto.TaskOutput{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueAt:       p.schedule.Calendar().In(task.DueAt),
		Completed:   task.Completed,
		CurrentHour: p.schedule.IsCurrentHour(task),
		Editable:    p.schedule.IsEditable(task),
	}
}
