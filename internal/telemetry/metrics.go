package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the orchestration service.
type Metrics struct {
	ChatTotal             *prometheus.CounterVec
	RequestDurationMs     *prometheus.HistogramVec
	ImagesGeneratedTotal  *prometheus.CounterVec
	ProviderFailureTotal  *prometheus.CounterVec
	ChainFallthroughTotal prometheus.Counter
	QuotaRejectionTotal   *prometheus.CounterVec
	UploadTotal           prometheus.Counter
}

// NewMetrics creates all metrics against the given registerer. Tests
// pass a fresh registry; main passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vizzy_chat_total",
			Help: "Total chat turns processed, by classified intent and user segment.",
		}, []string{"intent", "segment"}),

		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vizzy_request_duration_ms",
			Help:    "End-to-end request duration in milliseconds (including provider latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 150000},
		}, []string{"endpoint"}),

		ImagesGeneratedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vizzy_images_generated_total",
			Help: "Total images returned to clients, by serving provider.",
		}, []string{"provider"}),

		ProviderFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vizzy_provider_failure_total",
			Help: "Total failed image provider attempts, by provider.",
		}, []string{"provider"}),

		ChainFallthroughTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vizzy_chain_fallthrough_total",
			Help: "Total requests where every image provider failed and the placeholder served.",
		}),

		QuotaRejectionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vizzy_quota_rejection_total",
			Help: "Total generation requests rejected by the daily image quota, by segment.",
		}, []string{"segment"}),

		UploadTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vizzy_upload_total",
			Help: "Total image uploads accepted.",
		}),
	}
}

// RecordChat records a completed chat turn.
func (m *Metrics) RecordChat(intent, segment string) {
	m.ChatTotal.WithLabelValues(intent, segment).Inc()
}

// RecordImages records images served by a provider.
func (m *Metrics) RecordImages(provider string, count int) {
	if count > 0 {
		m.ImagesGeneratedTotal.WithLabelValues(provider).Add(float64(count))
	}
}

// RecordProviderFailure records a single failed provider attempt.
func (m *Metrics) RecordProviderFailure(provider string) {
	m.ProviderFailureTotal.WithLabelValues(provider).Inc()
}

// RecordFallthrough records a chain exhaustion that served the placeholder.
func (m *Metrics) RecordFallthrough() {
	m.ChainFallthroughTotal.Inc()
}

// RecordQuotaRejection records a generation rejected by the daily quota.
func (m *Metrics) RecordQuotaRejection(segment string) {
	m.QuotaRejectionTotal.WithLabelValues(segment).Inc()
}

// RecordDuration records a request duration for an endpoint.
func (m *Metrics) RecordDuration(endpoint string, durationMs float64) {
	m.RequestDurationMs.WithLabelValues(endpoint).Observe(durationMs)
}

// RecordUpload records an accepted upload.
func (m *Metrics) RecordUpload() {
	m.UploadTotal.Inc()
}
