package domain_test

import (
	"testing"
	"time"

	"daytask/internal/modules/task/domain"
)

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "b", DueAt: base.Add(9 * time.Hour)},
		{ID: "c", DueAt: base.Add(18 * time.Hour)},
		{ID: "a", DueAt: base.Add(9 * time.Hour)},
		{ID: "d", DueAt: base.Add(1 * time.Hour)},
	}
	domain.SortNewestFirst(tasks)
	want := []string{"c", "a", "b", "d"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, tasks[i].ID, id)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := (domain.Task{ID: "1", Title: "t", Description: "d", DueAt: due}).Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}
	if err := (domain.Task{Title: "t", Description: "d", DueAt: due}).Validate(); err == nil {
		t.Fatalf("missing id accepted")
	}
	if err := (domain.NewTask{Title: "t", Description: "\n\t", DueAt: due}).Validate(); err == nil {
		t.Fatalf("whitespace description accepted")
	}
}
