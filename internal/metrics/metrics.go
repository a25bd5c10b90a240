// Package metrics exposes prometheus counters for conversational turns and
// best-effort persistence.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes
const (
	OutcomeSuccess        = "success"
	OutcomeRejected       = "rejected"
	OutcomeInterpretation = "interpretation_error"
	OutcomeFilter         = "filter_error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	turnsTotal          *prometheus.CounterVec
	turnDuration        prometheus.Histogram
	persistenceFailures *prometheus.CounterVec
	hydrationFailures   prometheus.Counter
	activeSessions      prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertychat_turns_total",
			Help: "Conversational turns by outcome",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "propertychat_turn_duration_seconds",
			Help:    "Duration of successful turns (interpretation plus filtering)",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertychat_persistence_failures_total",
			Help: "Failed best-effort writes by target",
		}, []string{"target"}),
		hydrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "propertychat_hydration_failures_total",
			Help: "Session starts whose saved criteria could not be applied to the catalog",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "propertychat_active_sessions",
			Help: "Sessions currently held in memory",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.turnsTotal, m.turnDuration, m.persistenceFailures, m.hydrationFailures, m.activeSessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TurnFinished records a turn outcome; seconds is only observed on success
func (m *Metrics) TurnFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.turnDuration.Observe(seconds)
	}
}

// PersistenceFailed records a failed write to target ("preferences", "messages", "cache")
func (m *Metrics) PersistenceFailed(target string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(target).Inc()
}

// HydrationFailed records a session start that fell back to the full catalog
func (m *Metrics) HydrationFailed() {
	if m == nil {
		return
	}
	m.hydrationFailures.Inc()
}

// SessionOpened increments the active session gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
