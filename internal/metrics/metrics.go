package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// OAuth Flow Metrics
	AuthorizationsStartedTotal prometheus.Counter
	OAuthCallbackTotal         *prometheus.CounterVec

	// Media Upload Metrics
	UploadPhaseTotal    *prometheus.CounterVec
	UploadPhaseDuration *prometheus.HistogramVec
	UploadSegments      prometheus.Histogram

	// Publish Metrics
	PublishAttemptsTotal *prometheus.CounterVec
	PublishRetriesTotal  prometheus.Counter

	// Upload Lifecycle Metrics
	UploadsSubmittedTotal prometheus.Counter
	UploadsCompletedTotal *prometheus.CounterVec
	UploadDuration        *prometheus.HistogramVec
	UploadsInFlight       prometheus.Gauge

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=true, returns Prometheus-based Metrics.
// If enabled=false, returns NoopMetrics (zero overhead).
// Uses sync.Once to ensure Prometheus metrics are only registered once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		AuthorizationsStartedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "xpost_authorizations_started_total",
				Help: "Total number of OAuth authorization flows started",
			},
		),
		OAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xpost_oauth_callback_total",
				Help: "Total number of OAuth callbacks processed",
			},
			[]string{"result"}, // success, error
		),

		UploadPhaseTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xpost_upload_phase_total",
				Help: "Total number of chunked upload phase executions",
			},
			[]string{"phase", "result"}, // init/append/finalize, success/error
		),
		UploadPhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xpost_upload_phase_duration_seconds",
				Help:    "Duration of chunked upload phases",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		UploadSegments: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xpost_upload_segments",
				Help:    "Number of APPEND segments per upload",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
		),

		PublishAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xpost_publish_attempts_total",
				Help: "Total number of post publish attempts",
			},
			[]string{"result"}, // success, error
		),
		PublishRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "xpost_publish_retries_total",
				Help: "Total number of publish retries after backoff",
			},
		),

		UploadsSubmittedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "xpost_uploads_submitted_total",
				Help: "Total number of uploads accepted for processing",
			},
		),
		UploadsCompletedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xpost_uploads_completed_total",
				Help: "Total number of uploads that reached a terminal state",
			},
			[]string{"status"}, // success, failed
		),
		UploadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xpost_upload_duration_seconds",
				Help:    "End-to-end duration of background upload tasks",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		UploadsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "xpost_uploads_in_flight",
				Help: "Current number of running background upload tasks",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xpost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xpost_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "xpost_http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordAuthorizationStarted() {
	m.AuthorizationsStartedTotal.Inc()
}

func (m *Metrics) RecordOAuthCallback(success bool) {
	m.OAuthCallbackTotal.WithLabelValues(resultLabel(success)).Inc()
}

func (m *Metrics) RecordUploadPhase(phase string, success bool, duration time.Duration) {
	m.UploadPhaseTotal.WithLabelValues(phase, resultLabel(success)).Inc()
	m.UploadPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *Metrics) RecordUploadSegments(count int) {
	m.UploadSegments.Observe(float64(count))
}

func (m *Metrics) RecordPublishAttempt(success bool) {
	m.PublishAttemptsTotal.WithLabelValues(resultLabel(success)).Inc()
}

func (m *Metrics) RecordPublishRetry() {
	m.PublishRetriesTotal.Inc()
}

func (m *Metrics) RecordUploadSubmitted() {
	m.UploadsSubmittedTotal.Inc()
}

func (m *Metrics) RecordUploadCompleted(status string, duration time.Duration) {
	m.UploadsCompletedTotal.WithLabelValues(status).Inc()
	m.UploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) SetUploadsInFlight(count int) {
	m.UploadsInFlight.Set(float64(count))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncHTTPInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) DecHTTPInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
