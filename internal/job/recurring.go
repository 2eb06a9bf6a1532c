package job

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"coopsched/internal/sched"
)

// Submitter is the part of the scheduler that accepts work.
type Submitter interface {
	ScheduleCallback(p sched.PriorityLevel, cb sched.Callback, opts ...sched.ScheduleOption) *sched.Task
}

// Recurrence resubmits a task on a cron schedule. Each run is a delayed
// task submitted when the previous run finishes.
type Recurrence struct {
	Schedule cron.Schedule
	Priority sched.PriorityLevel
	Count    int // runs in total; zero or less means forever

	// Now reads wall time for the schedule; defaults to time.Now.
	Now func() time.Time

	runs int
	last *sched.Task
}

// NewRecurrence parses a standard cron spec, descriptors such as
// "@every 2s" included.
func NewRecurrence(spec string, count int, p sched.PriorityLevel) (*Recurrence, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return &Recurrence{Schedule: schedule, Priority: p, Count: count}, nil
}

// Start submits the first run. newCallback is called once per run.
func (r *Recurrence) Start(s Submitter, newCallback func() sched.Callback) *sched.Task {
	now := r.now()
	delay := r.Schedule.Next(now).Sub(now)

	cb := Then(newCallback(), func() {
		r.runs++
		if r.Count <= 0 || r.runs < r.Count {
			r.Start(s, newCallback)
		}
	})
	r.last = s.ScheduleCallback(r.Priority, cb, sched.WithDelay(delay))
	return r.last
}

// Runs returns the number of finished runs.
func (r *Recurrence) Runs() int { return r.runs }

// Last returns the most recently submitted run, for cancellation.
func (r *Recurrence) Last() *sched.Task { return r.last }

func (r *Recurrence) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
