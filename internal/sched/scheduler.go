// internal/sched/scheduler.go

package sched

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"coopsched/internal/heap"
)

// ErrInvalidFrameRate is returned by ForceFrameRate for rates outside 0..125.
var ErrInvalidFrameRate = errors.New("frame rate must be between 0 and 125")

// Host is the execution context the scheduler runs on.
//
// Now is a monotonic clock in milliseconds. RequestTurn runs fn on a later
// turn of the host loop, after the current call stack unwinds. ArmAlarm
// runs fn once after delayMs and returns a handle for CancelAlarm.
type Host interface {
	Now() int64
	RequestTurn(fn func())
	ArmAlarm(fn func(), delayMs int64) int64
	CancelAlarm(id int64)
}

// Scheduler runs callbacks in deadline order on a single host context,
// handing control back to the host once a slice is used up.
//
// A Scheduler is not safe for concurrent use. All calls, including the
// ones made from callbacks, must happen on the host's execution context.
type Scheduler struct {
	// Scheduler-related
	host       Host
	cfg        Config
	sliceMS    int64                // current slice budget, see ForceFrameRate
	taskQueue  *heap.MinHeap[*Task] // ready tasks ordered by expiration time
	timerQueue *heap.MinHeap[*Task] // delayed tasks ordered by start time
	nextID     uint64               // last task id handed out

	currentTask     *Task
	currentPriority PriorityLevel
	sliceStart      int64 // host time at which the current flush began

	isPerformingWork        bool  // a flush is on the stack
	isHostCallbackScheduled bool  // a flush has been asked for
	isMessageLoopRunning    bool  // a turn is outstanding with the host
	isHostTimeoutScheduled  bool  // an alarm is armed
	alarmID                 int64 // handle of the armed alarm

	// logging-related
	log       zerolog.Logger
	observers []Observer
	runID     string
}

// New creates a Scheduler driven by h.
func New(h Host, cfg Config, opts ...Option) *Scheduler {
	cfg = cfg.sanitize()
	s := &Scheduler{
		host:            h,
		cfg:             cfg,
		sliceMS:         cfg.SliceMS,
		taskQueue:       heap.New[*Task](64),
		timerQueue:      heap.New[*Task](16),
		currentPriority: NoPriority,
		sliceStart:      -1,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.log = s.log.With().Str("run_id", s.runID).Logger()
	return s
}

// RunID identifies this scheduler instance in logs and traces.
func (s *Scheduler) RunID() string { return s.runID }

// ScheduleCallback submits cb at priority p and returns its task, which may
// later be passed to CancelCallback. A nil callback schedules nothing.
func (s *Scheduler) ScheduleCallback(p PriorityLevel, cb Callback, opts ...ScheduleOption) *Task {
	if cb == nil {
		return nil
	}
	if p == NoPriority || !p.IsValid() {
		p = NormalPriority
	}

	var o scheduleOptions
	for _, opt := range opts {
		opt(&o)
	}

	currentTime := s.host.Now()
	startTime := currentTime
	if o.delayMS > 0 {
		startTime += o.delayMS
	}

	s.nextID++
	task := &Task{
		id:             s.nextID,
		callback:       cb,
		priority:       p,
		startTime:      startTime,
		expirationTime: startTime + s.cfg.timeoutForPriority(p),
	}

	if startTime > currentTime {
		// delayed: wait in the timer queue until startTime
		task.sortIndex = startTime
		s.timerQueue.Push(task)
		s.emit(StatusDelay, task)

		if head, _ := s.timerQueue.Peek(); s.taskQueue.Len() == 0 && head == task {
			// the earliest timer changed, so the alarm must follow it
			s.requestHostTimeout(startTime - currentTime)
		}
		return task
	}

	task.sortIndex = task.expirationTime
	s.taskQueue.Push(task)
	s.emit(StatusEnqueue, task)

	if !s.isHostCallbackScheduled && !s.isPerformingWork {
		s.isHostCallbackScheduled = true
		s.requestHostCallback()
	}
	return task
}

// CancelCallback stops a task that has not run to completion. The task stays
// where it is and is dropped once it reaches the head of its queue.
// Canceling a task that is running, finished, or nil does nothing.
func (s *Scheduler) CancelCallback(task *Task) {
	if task == nil || task.callback == nil {
		return
	}
	task.callback = nil
	task.canceled = true
	s.log.Debug().Uint64("task_id", task.id).Msg("task canceled")
}

// CurrentPriorityLevel returns the priority of the running callback, or
// NoPriority outside of one.
func (s *Scheduler) CurrentPriorityLevel() PriorityLevel { return s.currentPriority }

// CurrentTask returns the task whose callback is running, or nil.
func (s *Scheduler) CurrentTask() *Task { return s.currentTask }

// ShouldYieldToHost reports whether the current slice is used up. Long
// running callbacks poll it and return a continuation when it flips.
func (s *Scheduler) ShouldYieldToHost() bool {
	// inclusive: a slice that is exactly used up yields
	timeElapsed := s.host.Now() - s.sliceStart
	return timeElapsed >= s.sliceMS
}

// RunWithPriority runs fn with p as the ambient priority, restoring the
// previous one afterwards even if fn panics.
func (s *Scheduler) RunWithPriority(p PriorityLevel, fn func()) {
	if !p.IsValid() {
		p = NormalPriority
	}
	previous := s.currentPriority
	s.currentPriority = p
	defer func() { s.currentPriority = previous }()
	fn()
}

// ForceFrameRate sets the slice so that fps slices fit in a second. Zero
// restores the configured slice.
func (s *Scheduler) ForceFrameRate(fps int) error {
	if fps < 0 || fps > 125 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrameRate, fps)
	}
	if fps == 0 {
		s.sliceMS = s.cfg.SliceMS
		return nil
	}
	s.sliceMS = int64(1000 / fps)
	return nil
}

// Pending returns the sizes of the ready and delayed queues, canceled tasks
// that have not surfaced yet included.
func (s *Scheduler) Pending() (ready, delayed int) {
	return s.taskQueue.Len(), s.timerQueue.Len()
}

// Len returns the total number of queued tasks.
func (s *Scheduler) Len() int {
	ready, delayed := s.Pending()
	return ready + delayed
}

// advanceTimers moves every due timer into the ready queue and drops
// canceled timers found at the head on the way.
func (s *Scheduler) advanceTimers(currentTime int64) {
	for {
		timer, ok := s.timerQueue.Peek()
		if !ok {
			return
		}
		switch {
		case timer.callback == nil:
			s.timerQueue.Pop()
			s.emit(StatusCancel, timer)
		case timer.startTime <= currentTime:
			s.timerQueue.Pop()
			timer.sortIndex = timer.expirationTime
			s.taskQueue.Push(timer)
			s.emit(StatusPromote, timer)
		default:
			// the remaining timers start later still
			return
		}
	}
}

// handleTimeout is the alarm callback.
func (s *Scheduler) handleTimeout() {
	s.isHostTimeoutScheduled = false
	s.alarmID = 0
	currentTime := s.host.Now()
	s.emitAt(currentTime, StatusEvent{Kind: StatusAlarm})
	s.advanceTimers(currentTime)

	if s.isHostCallbackScheduled {
		return
	}
	if s.taskQueue.Len() > 0 {
		s.isHostCallbackScheduled = true
		s.requestHostCallback()
		return
	}
	if timer, ok := s.timerQueue.Peek(); ok {
		s.requestHostTimeout(timer.startTime - currentTime)
	}
}

// flushWork runs the work loop under the reentrancy guard and restores the
// ambient priority on every exit path.
func (s *Scheduler) flushWork(initialTime int64) bool {
	s.isHostCallbackScheduled = false
	if s.isHostTimeoutScheduled {
		// the turn covers timers itself; the loop re-arms when it drains
		s.cancelHostTimeout()
	}

	s.isPerformingWork = true
	previousPriority := s.currentPriority
	defer func() {
		s.currentTask = nil
		s.currentPriority = previousPriority
		s.isPerformingWork = false
	}()
	return s.workLoop(initialTime)
}

// workLoop executes ready tasks in deadline order. It returns true when
// ready work is left for a later turn.
func (s *Scheduler) workLoop(initialTime int64) bool {
	currentTime := initialTime
	s.advanceTimers(currentTime)

	for {
		task, ok := s.taskQueue.Peek()
		if !ok {
			break
		}
		if task.expirationTime > currentTime && s.ShouldYieldToHost() {
			// not overdue and out of time: hand the turn back
			s.emit(StatusYield, task)
			s.log.Debug().
				Uint64("task_id", task.id).
				Int64("elapsed_ms", currentTime-s.sliceStart).
				Msg("yielding to host")
			return true
		}

		callback := task.callback
		if callback == nil {
			s.taskQueue.Pop()
			if task.canceled {
				s.emit(StatusCancel, task)
			}
			continue
		}

		task.callback = nil
		didTimeout := task.expirationTime <= currentTime
		s.emit(StatusDispatch, task)
		step, err := s.invoke(task, callback, didTimeout)
		currentTime = s.host.Now()

		switch {
		case err != nil:
			// a faulting task is consumed, never retried
			s.popIfHead(task)
			s.emit(StatusFault, task)
			s.log.Error().
				Err(err).
				Uint64("task_id", task.id).
				Stringer("priority", task.priority).
				Msg("task callback failed")
			s.advanceTimers(currentTime)
		case !step.Finished():
			task.callback = step.next
			s.emit(StatusContinue, task)
			s.advanceTimers(currentTime)
			return true
		default:
			s.popIfHead(task)
			s.emit(StatusFinish, task)
			s.advanceTimers(currentTime)
		}
	}

	if timer, ok := s.timerQueue.Peek(); ok {
		s.requestHostTimeout(timer.startTime - currentTime)
	}
	return false
}

// invoke runs one callback with the task published as current and turns a
// panic into an error.
func (s *Scheduler) invoke(task *Task, cb Callback, didTimeout bool) (step Step, err error) {
	previousTask, previousPriority := s.currentTask, s.currentPriority
	s.currentTask = task
	s.currentPriority = task.priority
	defer func() {
		s.currentTask = previousTask
		s.currentPriority = previousPriority
		if r := recover(); r != nil {
			step = Done()
			if e, ok := r.(error); ok {
				err = fmt.Errorf("task %d panicked: %w", task.id, e)
			} else {
				err = fmt.Errorf("task %d panicked: %v", task.id, r)
			}
		}
	}()
	return cb(didTimeout), nil
}

// popIfHead removes task when it is still at the head. A callback that
// queued more urgent work leaves it behind, to be dropped later.
func (s *Scheduler) popIfHead(task *Task) {
	if head, ok := s.taskQueue.Peek(); ok && head == task {
		s.taskQueue.Pop()
	}
}

// performWorkUntilDeadline is the turn callback.
func (s *Scheduler) performWorkUntilDeadline() {
	if !s.isMessageLoopRunning {
		return
	}
	currentTime := s.host.Now()
	s.sliceStart = currentTime

	// If a callback takes the host down, the deferred request keeps the
	// queue moving on the next turn.
	hasMoreWork := true
	defer func() {
		if hasMoreWork {
			s.schedulePerformWorkUntilDeadline()
		} else {
			s.isMessageLoopRunning = false
		}
	}()
	hasMoreWork = s.flushWork(currentTime)
}

func (s *Scheduler) requestHostCallback() {
	if !s.isMessageLoopRunning {
		s.isMessageLoopRunning = true
		s.schedulePerformWorkUntilDeadline()
	}
}

func (s *Scheduler) schedulePerformWorkUntilDeadline() {
	s.host.RequestTurn(s.performWorkUntilDeadline)
}

// requestHostTimeout arms the single alarm, replacing any armed one.
func (s *Scheduler) requestHostTimeout(delayMS int64) {
	if s.isHostTimeoutScheduled {
		s.host.CancelAlarm(s.alarmID)
	}
	if delayMS < 0 {
		delayMS = 0
	}
	s.isHostTimeoutScheduled = true
	s.alarmID = s.host.ArmAlarm(s.handleTimeout, delayMS)
	s.log.Debug().Int64("delay_ms", delayMS).Msg("alarm armed")
}

func (s *Scheduler) cancelHostTimeout() {
	s.host.CancelAlarm(s.alarmID)
	s.isHostTimeoutScheduled = false
	s.alarmID = 0
}

func (s *Scheduler) emit(kind StatusKind, task *Task) {
	if len(s.observers) == 0 {
		return
	}
	s.emitAt(s.host.Now(), StatusEvent{
		Kind:           kind,
		TaskID:         task.id,
		Priority:       task.priority,
		ExpirationTime: task.expirationTime,
	})
}

func (s *Scheduler) emitAt(now int64, ev StatusEvent) {
	ev.Time = now
	for _, o := range s.observers {
		o.OnEvent(ev)
	}
}
