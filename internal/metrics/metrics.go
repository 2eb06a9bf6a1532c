// Package metrics exports scheduler activity as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"coopsched/internal/sched"
)

// Collector is a sched.Observer backed by Prometheus collectors.
type Collector struct {
	// events counts scheduler events.
	// Labels:
	//   - kind: event kind ("Enqueue", "Dispatch", "Yield", ...)
	//   - priority: priority name of the task, "none" for alarms
	events *prometheus.CounterVec

	// overdue tracks how far past its deadline a task was when dispatched,
	// in milliseconds. Tasks dispatched before their deadline are not observed.
	overdue *prometheus.HistogramVec

	// queueDepth tracks the number of queued tasks.
	// Labels:
	//   - queue: "ready" or "delayed"
	queueDepth *prometheus.GaugeVec
}

// NewCollector registers the collectors with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coopsched_events_total",
			Help: "The total number of scheduler events",
		}, []string{"kind", "priority"}),
		overdue: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coopsched_dispatch_overdue_ms",
			Help:    "How far past its deadline a task was when dispatched",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"priority"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coopsched_queue_depth",
			Help: "Number of tasks in each queue",
		}, []string{"queue"}),
	}
}

// OnEvent implements sched.Observer.
func (c *Collector) OnEvent(ev sched.StatusEvent) {
	c.events.WithLabelValues(ev.Kind.String(), ev.Priority.String()).Inc()

	// immediate tasks are born expired, so they are always observed
	if ev.Kind == sched.StatusDispatch && ev.Time >= ev.ExpirationTime {
		c.overdue.WithLabelValues(ev.Priority.String()).Observe(float64(ev.Time - ev.ExpirationTime))
	}
}

// SetQueueDepth records the sizes reported by sched.Scheduler.Pending.
func (c *Collector) SetQueueDepth(ready, delayed int) {
	c.queueDepth.WithLabelValues("ready").Set(float64(ready))
	c.queueDepth.WithLabelValues("delayed").Set(float64(delayed))
}
