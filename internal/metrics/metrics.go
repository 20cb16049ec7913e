// Package metrics exposes prometheus instruments for guard decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts guard outcomes. All methods are nil-safe so services can
// treat the dependency as optional.
type Metrics struct {
	quotaDecisions *prometheus.CounterVec
	lockoutEvents  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		quotaDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repaintly_quota_decisions_total",
			Help: "Quota gate decisions by outcome.",
		}, []string{"outcome"}),
		lockoutEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repaintly_lockout_events_total",
			Help: "Lockout guard events by type.",
		}, []string{"event"}),
	}
}

func (m *Metrics) QuotaDecision(outcome string) {
	if m == nil || m.quotaDecisions == nil {
		return
	}
	m.quotaDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LockoutEvent(event string) {
	if m == nil || m.lockoutEvents == nil {
		return
	}
	m.lockoutEvents.WithLabelValues(event).Inc()
}
