package domain

import "time"

// IsSelectedDay reports whether candidate is the day the user is browsing.
func IsSelectedDay(cal Calendar, candidate, currentDay time.Time) bool {
	return cal.SameDay(candidate, currentDay)
}

func IsToday(cal Calendar, day, now time.Time) bool {
	return cal.SameDay(day, now)
}

// IsCurrentHour is true when the task is due today within the current clock
// hour. Minutes and seconds are ignored: 14:05 and 14:55 both match at 14:30.
func IsCurrentHour(cal Calendar, task Task, now time.Time) bool {
	if !cal.SameDay(task.DueAt, now) {
		return false
	}
	return cal.In(task.DueAt).Hour() == cal.In(now).Hour()
}

// IsEditable is true for tasks due today or on a later day. Earlier tasks
// stay as they were recorded.
func IsEditable(cal Calendar, task Task, now time.Time) bool {
	return !cal.StartOfDay(task.DueAt).Before(cal.StartOfDay(now))
}
