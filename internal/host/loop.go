// internal/host/loop.go

package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrLoopRunning is returned when Run is called on a loop already running.
var ErrLoopRunning = errors.New("host: loop is already running")

// Loop is a single goroutine event loop. Work queued with Post or
// RequestTurn runs in FIFO order on the goroutine that called Run.
//
// Post is safe from any goroutine. RequestTurn, ArmAlarm and CancelAlarm
// are meant for code already running on the loop.
type Loop struct {
	*Clock
	log zerolog.Logger

	mu      sync.Mutex
	jobs    []func() // producers append here
	spare   []func() // drained batch, reused
	wake    chan struct{}
	running bool

	// only touched on the loop goroutine
	alarms    map[int64]*time.Timer
	nextAlarm int64
}

// NewLoop creates an idle loop.
func NewLoop(log zerolog.Logger) *Loop {
	return &Loop{
		Clock:  NewClock(),
		log:    log.With().Str("component", "host").Logger(),
		wake:   make(chan struct{}, 1),
		alarms: make(map[int64]*time.Timer),
	}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.jobs = append(l.jobs, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RequestTurn queues fn behind everything already posted.
func (l *Loop) RequestTurn(fn func()) {
	l.Post(fn)
}

// ArmAlarm runs fn on the loop once delayMs has passed.
func (l *Loop) ArmAlarm(fn func(), delayMs int64) int64 {
	l.nextAlarm++
	id := l.nextAlarm
	l.alarms[id] = time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() {
		l.Post(func() {
			// a canceled alarm may still have been in flight
			if _, ok := l.alarms[id]; !ok {
				return
			}
			delete(l.alarms, id)
			fn()
		})
	})
	return id
}

// CancelAlarm disarms the alarm. Unknown ids are ignored.
func (l *Loop) CancelAlarm(id int64) {
	if t, ok := l.alarms[id]; ok {
		t.Stop()
		delete(l.alarms, id)
	}
}

// Run drives the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLoopRunning
	}
	l.running = true
	l.mu.Unlock()

	l.log.Debug().Msg("loop started")
	defer func() {
		for id, t := range l.alarms {
			t.Stop()
			delete(l.alarms, id)
		}
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		l.log.Debug().Int64("turns", l.Count()).Msg("loop stopped")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		batch := l.jobs
		l.jobs = l.spare[:0]
		l.mu.Unlock()

		if len(batch) == 0 {
			l.spare = batch
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
			}
			continue
		}

		// jobs posted by this batch wait for the next pass, so other
		// producers and ctx get a look in between
		for i, fn := range batch {
			fn()
			batch[i] = nil
			l.tick()
		}
		l.spare = batch[:0]
	}
}
