package sessionbridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// Metrics records request outcomes and session terminations. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	terminations prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg (when non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionbridge",
			Name:      "requests_total",
			Help:      "Requests by endpoint and outcome (success or error kind).",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sessionbridge",
			Name:      "request_duration_seconds",
			Help:      "Time from send to terminal outcome for requests that reached the transport.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		terminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sessionbridge",
			Name:      "session_terminations_total",
			Help:      "Sessions cleared by the session guard.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.terminations)
	}
	return m
}

func (m *Metrics) observeRequest(endpoint, outcome string, elapsed time.Duration, sent bool) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	if sent {
		m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeTermination() {
	if m == nil {
		return
	}
	m.terminations.Inc()
}
