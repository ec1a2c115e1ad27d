package domain

import "time"

// Calendar is the day-boundary and week-start rule every date computation
// goes through. The zero value uses time.Local and Sunday-first weeks.
type Calendar struct {
	Location  *time.Location
	WeekStart time.Weekday
	// LegacyWeekOffset shifts the week window one day forward so it spans
	// days 2..8 after the week start.
	LegacyWeekOffset bool
}

func DefaultCalendar() Calendar {
	return Calendar{Location: time.Local, WeekStart: time.Sunday}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) In(t time.Time) time.Time {
	return t.In(c.location())
}

func (c Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := c.In(t).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.location())
}

// AddDays moves t by n calendar days and returns that day's midnight.
func (c Calendar) AddDays(t time.Time, n int) time.Time {
	y, m, d := c.In(t).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, c.location())
}

// DayRange is the half-open interval [start, end) covering t's calendar day.
// end is the next midnight, not start+24h, so DST days keep their true length.
func (c Calendar) DayRange(t time.Time) (time.Time, time.Time) {
	return c.StartOfDay(t), c.AddDays(t, 1)
}

func (c Calendar) SameDay(a, b time.Time) bool {
	ay, am, ad := c.In(a).Date()
	by, bm, bd := c.In(b).Date()
	return ay == by && am == bm && ad == bd
}

func (c Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	back := (int(day.Weekday()) - int(c.WeekStart) + 7) % 7
	return c.AddDays(day, -back)
}

// At places the clock time of clock on the calendar day of day.
func (c Calendar) At(day, clock time.Time) time.Time {
	y, m, d := c.In(day).Date()
	local := c.In(clock)
	return time.Date(y, m, d, local.Hour(), local.Minute(), 0, 0, c.location())
}
