// Package metrics homes the Prometheus instrumentation for a scheduling
// round, grounded on the teacher's DurationSeconds/UnfinishedWorkSeconds
// gauges in scheduler.go — same idea (round duration, work-in-progress
// counts), scoped here to placement and ordering instead of pod binding.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "placement_core"

// Recorder bundles the round-level metrics. A nil *Recorder is safe to
// call methods on — every method is a no-op in that case — so engines
// can take an optional *Recorder without special-casing callers that
// don't want metrics.
type Recorder struct {
	roundDuration   prometheus.Histogram
	instancesPlaced prometheus.Counter
	instancesBanned prometheus.Counter
	orderingEdges   prometheus.Counter
}

// NewRecorder registers the round's metrics against reg and returns a
// Recorder. Pass prometheus.NewRegistry() in tests to avoid colliding
// with the default global registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "duration_seconds",
			Help:      "Time spent computing one placement+ordering round.",
			Buckets:   prometheus.DefBuckets,
		}),
		instancesPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "instances_placed_total",
			Help:      "Instances successfully assigned a node.",
		}),
		instancesBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "instances_banned_total",
			Help:      "Instances left provisional with a -INFINITY location record.",
		}),
		orderingEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ordering",
			Name:      "edges_added_total",
			Help:      "New ordering graph edges added across all update() calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.roundDuration, r.instancesPlaced, r.instancesBanned, r.orderingEdges)
	}
	return r
}

func (r *Recorder) InstancePlaced() {
	if r == nil {
		return
	}
	r.instancesPlaced.Inc()
}

func (r *Recorder) InstanceBanned() {
	if r == nil {
		return
	}
	r.instancesBanned.Inc()
}

func (r *Recorder) OrderingEdgeAdded() {
	if r == nil {
		return
	}
	r.orderingEdges.Inc()
}

func (r *Recorder) ObserveRoundSeconds(seconds float64) {
	if r == nil {
		return
	}
	r.roundDuration.Observe(seconds)
}
