package domain

import "time"

const DaysPerWeek = 7

// WeekWindow holds the seven navigable dates, each at midnight in the
// calendar's location.
type WeekWindow struct {
	Days [DaysPerWeek]time.Time
}

func ComputeWeek(cal Calendar, now time.Time) WeekWindow {
	start := cal.StartOfWeek(now)
	offset := 0
	if cal.LegacyWeekOffset {
		offset = 1
	}
	w := WeekWindow{}
	for i := range w.Days {
		w.Days[i] = cal.AddDays(start, i+offset)
	}
	return w
}

// Index returns the position of day in the window or -1.
func (w WeekWindow) Index(cal Calendar, day time.Time) int {
	for i, d := range w.Days {
		if cal.SameDay(d, day) {
			return i
		}
	}
	return -1
}

func (w WeekWindow) First() time.Time { return w.Days[0] }

func (w WeekWindow) Last() time.Time { return w.Days[DaysPerWeek-1] }
