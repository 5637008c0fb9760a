// Package metrics exposes the outreach pipeline counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	discoveryRuns   *prometheus.CounterVec
	discoveryTime   prometheus.Histogram
	validations     *prometheus.CounterVec
	contacts        *prometheus.CounterVec
	drafts          *prometheus.CounterVec
	relayerRequests *prometheus.CounterVec
	browserLeases   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		discoveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_discovery_runs_total",
			Help: "Discovery runs by result (ok, or the failure kind).",
		}, []string{"result"}),
		discoveryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_discovery_duration_seconds",
			Help:    "Wall time of one discovery run, cooldown excluded.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_profile_validations_total",
			Help: "Profile validations by platform and outcome.",
		}, []string{"platform", "outcome"}),
		contacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_contacts_total",
			Help: "Contacts created or skipped, by source and telegram validation.",
		}, []string{"source", "telegram"}),
		drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_drafts_total",
			Help: "Draft lifecycle events.",
		}, []string{"event"}),
		relayerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_relayer_requests_total",
			Help: "Relayer protocol calls by route and status class.",
		}, []string{"route", "status"}),
		browserLeases: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_browser_active_leases",
			Help: "Browser tabs currently leased.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.discoveryRuns, m.discoveryTime, m.validations, m.contacts,
		m.drafts, m.relayerRequests, m.browserLeases,
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DiscoveryRun(result string, seconds float64) {
	if m == nil {
		return
	}
	m.discoveryRuns.WithLabelValues(result).Inc()
	m.discoveryTime.Observe(seconds)
}

func (m *Metrics) Validation(platform, outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(platform, outcome).Inc()
}

func (m *Metrics) Contact(source, telegram string) {
	if m == nil {
		return
	}
	m.contacts.WithLabelValues(source, telegram).Inc()
}

// Draft counts a lifecycle event: created, generation_failed, approved, skipped, sent,
// send_failed, regenerated, followup.
func (m *Metrics) Draft(event string) {
	if m == nil {
		return
	}
	m.drafts.WithLabelValues(event).Inc()
}

func (m *Metrics) RelayerRequest(route string, status int) {
	if m == nil {
		return
	}
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	}
	m.relayerRequests.WithLabelValues(route, class).Inc()
}

func (m *Metrics) ActiveLeases(n int) {
	if m == nil {
		return
	}
	m.browserLeases.Set(float64(n))
}
