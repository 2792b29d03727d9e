// Package metrics exposes session counters as Prometheus collectors on a
// per-session registry, so several sessions in one process never collide.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tmap"

// Metrics holds the session collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	revisions   prometheus.Counter
	mutations   *prometheus.CounterVec
	mutationErr *prometheus.CounterVec
	layoutTime  *prometheus.HistogramVec
	discarded   prometheus.Counter
	subscribers prometheus.Gauge
	dropped     prometheus.Counter
	nodes       prometheus.Gauge
	edges       prometheus.Gauge
	saves       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		revisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "revisions_total",
			Help:      "Graph revisions published",
		}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "mutations_total",
			Help:      "Applied graph mutations by operation",
		}, []string{"op"}),
		mutationErr: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "mutation_errors_total",
			Help:      "Rejected graph mutations by operation",
		}, []string{"op"}),
		layoutTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "duration_seconds",
			Help:      "Layout computation time",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"size"}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "discarded_total",
			Help:      "Layout results dropped as stale or cancelled",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "subscribers",
			Help:      "Active event subscribers",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "events_coalesced_total",
			Help:      "Events merged into a pending event because a subscriber was slow",
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Nodes in the current revision",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Edges in the current revision",
		}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Snapshot saves by result",
		}, []string{"result"}),
	}
}

// Mutation records an applied or rejected mutation.
func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.mutationErr.WithLabelValues(op).Inc()
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// Revision records a newly published revision and its size.
func (m *Metrics) Revision(nodes, edges int) {
	if m == nil {
		return
	}
	m.revisions.Inc()
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
}

// LayoutComputed implements layout.Observer.
func (m *Metrics) LayoutComputed(_ string, nodes int, d time.Duration) {
	if m == nil {
		return
	}
	m.layoutTime.WithLabelValues(sizeBucket(nodes)).Observe(d.Seconds())
}

// LayoutDiscarded counts a dropped layout result.
func (m *Metrics) LayoutDiscarded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

// Subscribers sets the subscriber gauge.
func (m *Metrics) Subscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// Coalesced counts an event merged for a slow subscriber.
func (m *Metrics) Coalesced() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// Saved records a save attempt.
func (m *Metrics) Saved(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
}

func sizeBucket(nodes int) string {
	switch {
	case nodes <= 50:
		return "small"
	case nodes <= 500:
		return "medium"
	default:
		return "large"
	}
}
