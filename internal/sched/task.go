package sched

// Callback is one step of a task. didTimeout is true when the task was
// already past its deadline at dispatch.
type Callback func(didTimeout bool) Step

// Step is what a callback hands back to the work loop: either the task is
// done, or it continues with another callback on a later turn.
type Step struct {
	next Callback
}

// Done reports that the task has no more work.
func Done() Step { return Step{} }

// Continue reports that the task has more work, to be run by next under
// the same task identity.
func Continue(next Callback) Step { return Step{next: next} }

// Finished reports whether the step ends its task.
func (s Step) Finished() bool { return s.next == nil }

// Next returns the continuation, nil when finished.
func (s Step) Next() Callback { return s.next }

// Task is one schedulable unit. It sits in at most one of the scheduler's
// two heaps: keyed by start time while delayed, by expiration time once
// ready.
type Task struct {
	id             uint64
	callback       Callback // nil once in flight, finished or canceled
	priority       PriorityLevel
	startTime      int64
	expirationTime int64
	sortIndex      int64
	canceled       bool
}

func (t *Task) ID() uint64 { return t.id }
func (t *Task) SortIndex() int64 { return t.sortIndex }
func (t *Task) Priority() PriorityLevel { return t.priority }
func (t *Task) StartTime() int64 { return t.startTime }
func (t *Task) ExpirationTime() int64 { return t.expirationTime }
func (t *Task) Canceled() bool { return t.canceled }
