package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the session's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	transitions  *prometheus.CounterVec
	updatesSent  prometheus.Counter
	pings        prometheus.Counter
	sendFailures prometheus.Counter
	state        prometheus.Gauge
}

// NewMetrics registers the session collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nutq_sync_transitions_total",
			Help: "Session state transitions",
		}, []string{"from", "to"}),
		updatesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "nutq_sync_updates_sent_total",
			Help: "Update records sent over the channel",
		}),
		pings: f.NewCounter(prometheus.CounterOpts{
			Name: "nutq_sync_pings_total",
			Help: "Liveness pings sent on empty save cycles",
		}),
		sendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "nutq_sync_send_failures_total",
			Help: "Sends or pings that failed and dropped the session",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Name: "nutq_sync_state",
			Help: "Current session state (0 disconnected, 1 acquiring, 2 synced)",
		}),
	}
}

func (m *Metrics) transition(from, to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.state.Set(float64(to))
}

func (m *Metrics) sent(n int) {
	if m == nil {
		return
	}
	m.updatesSent.Add(float64(n))
}

func (m *Metrics) pinged() {
	if m == nil {
		return
	}
	m.pings.Inc()
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}
