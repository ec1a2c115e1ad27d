package domain_test

import (
	"testing"
	"time"

	"daytask/internal/modules/task/domain"
)

func TestComputeWeekReturnsSevenConsecutiveDays(t *testing.T) {
	t.Parallel()
	cal := domain.Calendar{Location: time.UTC, WeekStart: time.Sunday}
	// walk a whole year of "now" values, including the DST-free UTC year end
	for now := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC); now.Year() == 2024; now = now.Add(37 * time.Hour) {
		w := domain.ComputeWeek(cal, now)
		if len(w.Days) != domain.DaysPerWeek {
			t.Fatalf("expected 7 days, got %d", len(w.Days))
		}
		for i := 1; i < len(w.Days); i++ {
			if !w.Days[i].After(w.Days[i-1]) {
				t.Fatalf("days must strictly increase at %d for now=%v", i, now)
			}
			if !cal.SameDay(cal.AddDays(w.Days[i-1], 1), w.Days[i]) {
				t.Fatalf("days must be one calendar day apart at %d for now=%v", i, now)
			}
		}
		if w.Index(cal, now) < 0 {
			t.Fatalf("window must contain now=%v", now)
		}
	}
}

func TestComputeWeekAcrossDSTStillConsecutive(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cal := domain.Calendar{Location: ny, WeekStart: time.Sunday}
	w := domain.ComputeWeek(cal, time.Date(2024, 11, 5, 9, 0, 0, 0, ny))
	for i, d := range w.Days {
		if d.Hour() != 0 || d.Minute() != 0 {
			t.Fatalf("day %d not at midnight: %v", i, d)
		}
		if d.Day() != 3+i {
			t.Fatalf("day %d expected Nov %d, got %v", i, 3+i, d)
		}
	}
}

func TestComputeWeekStartsOnWeekStart(t *testing.T) {
	t.Parallel()
	cal := domain.Calendar{Location: time.UTC, WeekStart: time.Monday}
	w := domain.ComputeWeek(cal, time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC))
	if !w.First().Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first day: %v", w.First())
	}
	if !w.Last().Equal(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last day: %v", w.Last())
	}
}

func TestComputeWeekLegacyOffsetSkipsWeekStart(t *testing.T) {
	t.Parallel()
	cal := domain.Calendar{Location: time.UTC, WeekStart: time.Sunday, LegacyWeekOffset: true}
	w := domain.ComputeWeek(cal, time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC))
	if !w.First().Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("legacy window should start on monday, got %v", w.First())
	}
	if !w.Last().Equal(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("legacy window should end on the next sunday, got %v", w.Last())
	}
	if w.Index(cal, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)) != -1 {
		t.Fatalf("legacy window must not contain the literal week start")
	}
}
