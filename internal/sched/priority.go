// internal/sched/priority.go

package sched

import (
	"errors"
	"fmt"
	"strings"
)

// PriorityLevel is the urgency class of a task. The numeric values are
// stable; callers may persist or branch on them.
type PriorityLevel int

const (
	NoPriority PriorityLevel = iota // nothing is executing
	ImmediatePriority
	UserBlockingPriority
	NormalPriority
	LowPriority
	IdlePriority
)

// maxSigned31BitInt is the idle timeout: large enough to never expire in
// practice while staying clear of overflow when added to a start time.
const maxSigned31BitInt = 1073741823

// ErrUnknownPriority is returned by ParsePriority for unrecognised input.
var ErrUnknownPriority = errors.New("unknown priority level")

var priorityNames = map[PriorityLevel]string{
	NoPriority:           "none",
	ImmediatePriority:    "immediate",
	UserBlockingPriority: "user-blocking",
	NormalPriority:       "normal",
	LowPriority:          "low",
	IdlePriority:         "idle",
}

func (p PriorityLevel) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// IsValid reports whether p is one of the declared levels.
func (p PriorityLevel) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority converts a name, an ordinal, or a Stringer into a level.
func ParsePriority(v any) (PriorityLevel, error) {
	switch x := v.(type) {
	case PriorityLevel:
		if x.IsValid() {
			return x, nil
		}
	case string:
		name := strings.ToLower(strings.TrimSpace(x))
		for p, s := range priorityNames {
			if s == name {
				return p, nil
			}
		}
	case fmt.Stringer:
		return ParsePriority(x.String())
	case int:
		if p := PriorityLevel(x); p.IsValid() {
			return p, nil
		}
	case int64:
		return ParsePriority(int(x))
	case int32:
		return ParsePriority(int(x))
	}
	return NoPriority, fmt.Errorf("%w: %v", ErrUnknownPriority, v)
}

// timeoutForPriority maps a level to the span added to a task's start time
// to obtain its deadline. Immediate work is born expired.
func (c Config) timeoutForPriority(p PriorityLevel) int64 {
	switch p {
	case ImmediatePriority:
		return -1
	case UserBlockingPriority:
		return c.UserBlockingTimeoutMS
	case LowPriority:
		return c.LowTimeoutMS
	case IdlePriority:
		return maxSigned31BitInt
	default:
		return c.NormalTimeoutMS
	}
}
