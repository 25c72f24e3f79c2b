package service

import (
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron with one-shot scheduling for reminder jobs.
// Its job set is not authoritative: it is rebuilt from the database on start.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleAt registers a job that fires once at the given time. A time
// already in the past never fires and the entry is dropped silently.
func (s *SchedulerService) ScheduleAt(at time.Time, job func()) cron.EntryID {
	return s.cron.Schedule(onceSchedule{at: at}, cron.FuncJob(job))
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// onceSchedule fires a single time. After the fire time has passed, Next
// returns the zero time and cron removes the entry.
type onceSchedule struct {
	at time.Time
}

func (o onceSchedule) Next(t time.Time) time.Time {
	if o.at.After(t) {
		return o.at
	}
	return time.Time{}
}
