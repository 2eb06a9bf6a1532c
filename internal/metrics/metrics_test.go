package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"coopsched/internal/host"
	"coopsched/internal/sched"
)

func TestCollector_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	m := host.NewManual()
	s := sched.New(m, sched.DefaultConfig(), sched.WithObserver(c))
	s.ScheduleCallback(sched.ImmediatePriority, func(bool) sched.Step { return sched.Done() })
	s.ScheduleCallback(sched.NormalPriority, func(bool) sched.Step { return sched.Done() })
	canceled := s.ScheduleCallback(sched.NormalPriority, func(bool) sched.Step { return sched.Done() })
	s.CancelCallback(canceled)
	m.RunPending()

	tests := map[string]struct {
		kind, priority string
		want           float64
	}{
		"normal enqueued":    {"Enqueue", "normal", 2},
		"immediate finished": {"Finish", "immediate", 1},
		"normal dispatched":  {"Dispatch", "normal", 1},
		"normal canceled":    {"Cancel", "normal", 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := testutil.ToFloat64(c.events.WithLabelValues(tt.kind, tt.priority))
			if got != tt.want {
				t.Errorf("mismatch:\n  got:  %v\n  want: %v", got, tt.want)
			}
		})
	}

	// only the immediate task was overdue at dispatch
	if n := testutil.CollectAndCount(reg, "coopsched_dispatch_overdue_ms"); n != 1 {
		t.Errorf("expected one overdue series, got %d", n)
	}
}

func TestCollector_QueueDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.SetQueueDepth(3, 2)

	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("ready")); got != 3 {
		t.Errorf("ready depth mismatch:\n  got:  %v\n  want: 3", got)
	}
	if got := testutil.ToFloat64(c.queueDepth.WithLabelValues("delayed")); got != 2 {
		t.Errorf("delayed depth mismatch:\n  got:  %v\n  want: 2", got)
	}
}
