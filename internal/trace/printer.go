package trace

import (
	"fmt"
	"io"
	"strings"

	"coopsched/internal/sched"
)

// Printer writes one aligned line per event, for watching a run live.
type Printer struct {
	w     io.Writer
	turns func() int64
}

// NewPrinter writes to w. turns, if not nil, is stamped on every line.
func NewPrinter(w io.Writer, turns func() int64) *Printer {
	return &Printer{w: w, turns: turns}
}

// OnEvent implements sched.Observer.
func (p *Printer) OnEvent(ev sched.StatusEvent) {
	var turn int64
	if p.turns != nil {
		turn = p.turns()
	}
	if ev.Kind == sched.StatusAlarm {
		fmt.Fprintf(p.w, "%07dms = Turn: %06d [%s]\n", ev.Time, turn, center(ev.Kind.String(), 12))
		return
	}
	fmt.Fprintf(p.w, "%07dms = Turn: %06d [%s] => Task: %04d, priority=%-13s deadline=%d\n",
		ev.Time,
		turn,
		center(ev.Kind.String(), 12),
		ev.TaskID,
		ev.Priority,
		ev.ExpirationTime,
	)
}

// center pads str on both sides to width.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}
