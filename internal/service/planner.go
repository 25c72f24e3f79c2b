package service

import "time"

// Reminder offsets in days before the deadline, scheduled in this order.
var reminderOffsets = [...]int{3, 1, 0}

// Reminders fire at 09:00 local time on the (business-day-shifted) date.
const reminderHour = 9

// Reminder is a planned one-shot notification for a task deadline.
type Reminder struct {
	Offset int
	FireAt time.Time
}

// PlanReminders computes fire times for the 3/1/0 day offsets before the
// deadline. A date landing on a weekend shifts forward to the next Monday:
// reminding on a non-working day is low-value, so reminders compress toward
// the nearest business day. Times already past are dropped, so a deadline in
// the past simply yields no reminders.
func PlanReminders(deadline, now time.Time) []Reminder {
	loc := deadline.Location()

	var reminders []Reminder
	for _, offset := range reminderOffsets {
		day := nextBusinessDay(deadline.AddDate(0, 0, -offset))
		fireAt := time.Date(day.Year(), day.Month(), day.Day(), reminderHour, 0, 0, 0, loc)
		if !fireAt.After(now) {
			continue
		}
		reminders = append(reminders, Reminder{Offset: offset, FireAt: fireAt})
	}
	return reminders
}

func nextBusinessDay(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
