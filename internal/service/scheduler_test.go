package service

import (
	"testing"
	"time"
)

func TestOnceScheduleFiresExactlyOnce(t *testing.T) {
	at := time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)
	sched := onceSchedule{at: at}

	before := at.Add(-time.Hour)
	if next := sched.Next(before); !next.Equal(at) {
		t.Errorf("expected next fire at %s, got %s", at, next)
	}

	// After the fire time cron asks again; the zero time drops the entry.
	if next := sched.Next(at); !next.IsZero() {
		t.Errorf("expected zero time after firing, got %s", next)
	}
	if next := sched.Next(at.Add(time.Minute)); !next.IsZero() {
		t.Errorf("expected zero time for past schedule, got %s", next)
	}
}
