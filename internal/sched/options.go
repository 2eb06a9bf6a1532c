package sched

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithObserver registers an event observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Scheduler) {
		s.runID = id
	}
}

// ScheduleOption configures a single submission.
type ScheduleOption func(*scheduleOptions)

type scheduleOptions struct {
	delayMS int64
}

// WithDelay defers the task by d. Zero, negative and sub-millisecond
// delays mean no delay.
func WithDelay(d time.Duration) ScheduleOption {
	return func(o *scheduleOptions) {
		o.delayMS = d.Milliseconds()
	}
}
