package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"daytask/internal/modules/task/domain"
	"daytask/internal/platform/clock"
	apperrors "daytask/internal/platform/errors"
	"daytask/internal/platform/id"

	_ "modernc.org/sqlite"
)

// SQLiteTaskStore keeps tasks in a single table. Times are stored as unix
// nanoseconds so range queries compare integers.
type SQLiteTaskStore struct {
	db    *sql.DB
	clock clock.Clock
	idGen id.Generator
}

func NewSQLiteTaskStore(dbPath string, clock clock.Clock, idGen id.Generator) (*SQLiteTaskStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteTaskStore{db: db, clock: clock, idGen: idGen}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteTaskStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  due_at INTEGER NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_due_at ON tasks(due_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

func (s *SQLiteTaskStore) Create(ctx context.Context, input domain.NewTask) (domain.Task, error) {
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
	const stmt = `
INSERT INTO tasks (id, title, description, due_at, completed, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		task.ID,
		task.Title,
		task.Description,
		task.DueAt.UnixNano(),
		task.CreatedAt.UnixNano(),
		task.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *SQLiteTaskStore) Update(ctx context.Context, id, title, description string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		title, description, s.clock.Now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectOne(res, id)
}

func (s *SQLiteTaskStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?`,
		boolToInt(completed), s.clock.Now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("set task completed: %w", err)
	}
	return expectOne(res, id)
}

func (s *SQLiteTaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res, id)
}

func (s *SQLiteTaskStore) Query(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, description, due_at, completed, created_at, updated_at
FROM tasks
WHERE due_at >= ? AND due_at < ?`, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (s *SQLiteTaskStore) Get(ctx context.Context, id string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, description, due_at, completed, created_at, updated_at
FROM tasks
WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return task, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		task                  domain.Task
		due, created, updated int64
		completed             int
	)
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &due, &completed, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, err
		}
		return domain.Task{}, fmt.Errorf("scan task: %w", err)
	}
	task.DueAt = time.Unix(0, due).UTC()
	task.CreatedAt = time.Unix(0, created).UTC()
	task.UpdatedAt = time.Unix(0, updated).UTC()
	task.Completed = completed != 0
	return task, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
