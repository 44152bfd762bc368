package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	Deliveries    *prometheus.CounterVec
	Onboarding    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_donation_transitions_total",
			Help: "Donation lifecycle commands by command and outcome",
		}, []string{"command", "outcome"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_notification_deliveries_total",
			Help: "Notification record writes by kind and outcome",
		}, []string{"kind", "outcome"}),
		Onboarding: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_ngo_onboarding_decisions_total",
			Help: "NGO onboarding decisions by decision and outcome",
		}, []string{"decision", "outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "foodshare_notification_fetch_seconds",
			Help:    "Latency of the merged recipient and global notification read",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveTransition(command, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObserveDelivery(kind, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveOnboarding(decision, outcome string) {
	if m == nil {
		return
	}
	m.Onboarding.WithLabelValues(decision, outcome).Inc()
}

func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}
