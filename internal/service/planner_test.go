package service

import (
	"testing"
	"time"
)

func TestPlanRemindersShiftsWeekendsToMonday(t *testing.T) {
	// Deadline Tue 2025-10-28 14:30; the 3-day offset lands on Sat 10-25 and
	// must shift to Mon 10-27.
	deadline := time.Date(2025, 10, 28, 14, 30, 0, 0, time.UTC)
	now := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)

	reminders := PlanReminders(deadline, now)
	if len(reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(reminders))
	}

	want := []Reminder{
		{Offset: 3, FireAt: time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)},
		{Offset: 1, FireAt: time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)},
		{Offset: 0, FireAt: time.Date(2025, 10, 28, 9, 0, 0, 0, time.UTC)},
	}
	for i, w := range want {
		got := reminders[i]
		if got.Offset != w.Offset || !got.FireAt.Equal(w.FireAt) {
			t.Errorf("reminder %d: got offset=%d fire=%s, want offset=%d fire=%s",
				i, got.Offset, got.FireAt, w.Offset, w.FireAt)
		}
	}
}

func TestPlanRemindersWeekendDeadlineConverges(t *testing.T) {
	// Deadline Sun 2025-11-02: both the 1-day (Sat) and 0-day (Sun) offsets
	// shift to Mon 11-03.
	deadline := time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)

	reminders := PlanReminders(deadline, now)
	if len(reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(reminders))
	}

	want := []time.Time{
		time.Date(2025, 10, 30, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !reminders[i].FireAt.Equal(w) {
			t.Errorf("reminder %d: got fire=%s, want %s", i, reminders[i].FireAt, w)
		}
	}
}

func TestPlanRemindersDropsPastTimes(t *testing.T) {
	deadline := time.Date(2025, 10, 28, 14, 30, 0, 0, time.UTC)

	// Mon 10-27 12:00 is after both the 3-day and 1-day fire times.
	now := time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC)
	reminders := PlanReminders(deadline, now)
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	if reminders[0].Offset != 0 {
		t.Errorf("expected offset 0, got %d", reminders[0].Offset)
	}

	// A deadline fully in the past yields nothing at all.
	if got := PlanReminders(deadline, time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)); len(got) != 0 {
		t.Errorf("expected no reminders for a past deadline, got %d", len(got))
	}
}

func TestPlanRemindersNeverInPastOrOnWeekend(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 60; day++ {
		deadline := now.AddDate(0, 0, day).Add(17 * time.Hour)
		for _, rem := range PlanReminders(deadline, now) {
			if !rem.FireAt.After(now) {
				t.Fatalf("deadline %s: fire time %s not after now", deadline, rem.FireAt)
			}
			if wd := rem.FireAt.Weekday(); wd == time.Saturday || wd == time.Sunday {
				t.Fatalf("deadline %s: fire time %s lands on %s", deadline, rem.FireAt, wd)
			}
			if rem.FireAt.Hour() != reminderHour || rem.FireAt.Minute() != 0 {
				t.Fatalf("deadline %s: fire time %s is not at %02d:00", deadline, rem.FireAt, reminderHour)
			}
		}
	}
}
