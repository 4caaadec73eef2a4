package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "arogyayaan"

// Outcome labels shared by the donor search and replenishment collectors
const (
	OutcomeFound    = "found"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeCreated  = "created"
	OutcomeNoDonor  = "no_donor"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeNotFound = "not_found"
)

// Metrics is the main metrics collector
type Metrics struct {
	registry *prometheus.Registry

	donorSearches      *prometheus.CounterVec
	distanceResolution *prometheus.CounterVec
	weatherClass       *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	cardsSaved         prometheus.Counter
	cardSaveFailures   prometheus.Counter
	replenishment      *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	dbQueries          *prometheus.HistogramVec
	health             *prometheus.GaugeVec
}

// NewMetrics creates a new metrics collector on its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		donorSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donor_searches_total",
			Help:      "Donor searches by outcome.",
		}, []string{"outcome"}),
		distanceResolution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_resolutions_total",
			Help:      "Distance resolutions by source (PRIMARY or FALLBACK).",
		}, []string{"source"}),
		weatherClass: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_classifications_total",
			Help:      "Weather classifications by class.",
		}, []string{"class"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of external provider calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"provider", "result"}),
		cardsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solution_cards_saved_total",
			Help:      "Solution cards persisted.",
		}),
		cardSaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solution_card_failures_total",
			Help:      "Solution card writes that were rolled back.",
		}),
		replenishment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replenishment_alerts_total",
			Help:      "Replenishment alerts processed by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replenishment_cycle_duration_seconds",
			Help:      "Duration of full replenishment cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		dbQueries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_up",
			Help:      "Component health (1 healthy, 0 unhealthy).",
		}, []string{"component"}),
	}

	m.registry.MustRegister(
		m.donorSearches,
		m.distanceResolution,
		m.weatherClass,
		m.providerLatency,
		m.cardsSaved,
		m.cardSaveFailures,
		m.replenishment,
		m.cycleDuration,
		m.dbQueries,
		m.health,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDonorSearch counts a donor search outcome
func (m *Metrics) RecordDonorSearch(outcome string) {
	m.donorSearches.WithLabelValues(outcome).Inc()
}

// RecordDistanceSource counts which provider produced a route
func (m *Metrics) RecordDistanceSource(source string) {
	m.distanceResolution.WithLabelValues(source).Inc()
}

// RecordWeather counts a weather classification
func (m *Metrics) RecordWeather(class string) {
	m.weatherClass.WithLabelValues(class).Inc()
}

// RecordProviderCall records the latency of an external provider call
func (m *Metrics) RecordProviderCall(provider string, ok bool, d time.Duration) {
	m.providerLatency.WithLabelValues(provider, result(ok)).Observe(d.Seconds())
}

// RecordCardSaved counts a persisted solution card
func (m *Metrics) RecordCardSaved() {
	m.cardsSaved.Inc()
}

// RecordCardFailure counts a rolled back solution card write
func (m *Metrics) RecordCardFailure() {
	m.cardSaveFailures.Inc()
}

// RecordAlert counts a replenishment alert outcome
func (m *Metrics) RecordAlert(outcome string) {
	m.replenishment.WithLabelValues(outcome).Inc()
}

// RecordCycle records the duration of a replenishment cycle
func (m *Metrics) RecordCycle(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

// RecordDatabaseQuery records the latency of a database operation
func (m *Metrics) RecordDatabaseQuery(operation string, ok bool, d time.Duration) {
	m.dbQueries.WithLabelValues(operation, result(ok)).Observe(d.Seconds())
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, isHealthy bool) {
	var value float64
	if isHealthy {
		value = 1
	}
	m.health.WithLabelValues(component).Set(value)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
