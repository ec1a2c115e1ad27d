package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "daytask/internal/platform/errors"
)

const SchemaVersion = 1

type Task struct {
	ID          string
	Title       string
	Description string
	DueAt       time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask is what a store needs to persist a task; the store assigns the id.
type NewTask struct {
	Title       string
	Description string
	DueAt       time.Time
}

// ValidationError marks a missing required field. It matches
// apperrors.ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateFields checks the two user-entered fields every task must carry.
func ValidateFields(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError{Field: "title"}
	}
	if strings.TrimSpace(description) == "" {
		return ValidationError{Field: "description"}
	}
	return nil
}

func (n NewTask) Validate() error {
	if err := ValidateFields(n.Title, n.Description); err != nil {
		return err
	}
	if n.DueAt.IsZero() {
		return ValidationError{Field: "due date"}
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ValidationError{Field: "id"}
	}
	return NewTask{Title: t.Title, Description: t.Description, DueAt: t.DueAt}.Validate()
}

// SortNewestFirst orders tasks by due time descending, ties by id.
func SortNewestFirst(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].DueAt.Equal(tasks[j].DueAt) {
			return tasks[i].DueAt.After(tasks[j].DueAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
