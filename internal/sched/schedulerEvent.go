// internal/sched/schedulerEvent.go

package sched

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusEnqueue  StatusKind = iota // ready task submitted
	StatusDelay                      // delayed task submitted
	StatusPromote                    // delayed task became ready
	StatusDispatch                   // callback about to run
	StatusContinue                   // callback returned a continuation
	StatusYield                      // slice used up, turn handed back
	StatusFinish                     // callback returned Done
	StatusCancel                     // canceled task discarded
	StatusFault                      // callback panicked
	StatusAlarm                      // alarm fired
)

// StatusEvent is emitted on every state change of a task or the host glue.
// Time is the host clock in milliseconds. TaskID is zero for StatusAlarm.
type StatusEvent struct {
	Time           int64
	Kind           StatusKind
	TaskID         uint64
	Priority       PriorityLevel
	ExpirationTime int64
}

// Observer receives scheduler events synchronously on the scheduler's
// execution context. It must not block.
type Observer interface {
	OnEvent(ev StatusEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev StatusEvent)

func (f ObserverFunc) OnEvent(ev StatusEvent) { f(ev) }

func (sk StatusKind) String() string {
	switch sk {
	case StatusEnqueue:
		return "Enqueue"
	case StatusDelay:
		return "Delay"
	case StatusPromote:
		return "Promote"
	case StatusDispatch:
		return "Dispatch"
	case StatusContinue:
		return "Continue"
	case StatusYield:
		return "Yield"
	case StatusFinish:
		return "Finish"
	case StatusCancel:
		return "Cancel"
	case StatusFault:
		return "Fault"
	case StatusAlarm:
		return "Alarm"
	default:
		return "Unknown"
	}
}
