// Package metrics exports loop activity to Prometheus and serves it over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"resident/pkg/resident"
)

// Observer records resident loop events. It implements resident.Observer.
type Observer struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   *prometheus.CounterVec
	stopped  *prometheus.CounterVec
	running  *prometheus.GaugeVec
}

var _ resident.Observer = (*Observer)(nil)

// NewObserver registers the resident collectors, plus the Go runtime and
// process collectors, on a private registry.
func NewObserver() *Observer {
	o := &Observer{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resident_task_runs_total",
			Help: "Task invocations by loop and returned state.",
		}, []string{"loop", "kind", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resident_task_duration_seconds",
			Help:    "Task run time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"loop", "kind"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resident_task_panics_total",
			Help: "Recovered task panics.",
		}, []string{"loop", "kind"}),
		stopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resident_loops_stopped_total",
			Help: "Loops that reached a terminal state, by reason.",
		}, []string{"loop", "kind", "reason"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resident_loops_running",
			Help: "1 while the loop is running.",
		}, []string{"loop", "kind"}),
	}
	o.reg.MustRegister(
		o.runs, o.duration, o.panics, o.stopped, o.running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

func (o *Observer) Registry() *prometheus.Registry { return o.reg }

// Started marks a loop as running. The app calls it right after spawning.
func (o *Observer) Started(name, kind string) {
	o.running.WithLabelValues(name, kind).Set(1)
}

func (o *Observer) TaskFinished(name, kind string, st resident.LoopState, took time.Duration) {
	o.runs.WithLabelValues(name, kind, st.Kind.String()).Inc()
	o.duration.WithLabelValues(name, kind).Observe(took.Seconds())
}

func (o *Observer) TaskPanicked(name, kind string) {
	o.panics.WithLabelValues(name, kind).Inc()
}

func (o *Observer) LoopStopped(name, kind string, reason resident.StopReason) {
	o.stopped.WithLabelValues(name, kind, string(reason)).Inc()
	o.running.WithLabelValues(name, kind).Set(0)
}
