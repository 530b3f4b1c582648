package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "wristlet_"

	ResultRaised     = "raised"
	ResultSuppressed = "suppressed"
	ResultNone       = "none"
	ResultRejected   = "rejected"
	ResultError      = "error"
)

var (
	registerOnce sync.Once

	ingestTotal   *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec

	alertsRaised     *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec
	alertsResolved   *prometheus.CounterVec

	notifyErrors *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the service metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_samples_total",
				Help: "Ingested wearable samples by transport, sample kind and result",
			},
			[]string{"source", "kind", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Sample ingestion latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		)

		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Alerts created by kind",
			},
			[]string{"kind"},
		)
		alertsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Alert candidates dropped by the dedup policy, by kind",
			},
			[]string{"kind"},
		)
		alertsResolved = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_resolved_total",
				Help: "Alerts resolved by kind",
			},
			[]string{"kind"},
		)

		notifyErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_errors_total",
				Help: "Post-commit notification failures by notifier",
			},
			[]string{"notifier"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			ingestTotal,
			ingestLatency,
			alertsRaised,
			alertsSuppressed,
			alertsResolved,
			notifyErrors,
			httpRequests,
			httpLatency,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest records one ingested sample.
func ObserveIngest(source, kind, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = ResultNone
	}
	if ingestTotal != nil {
		ingestTotal.WithLabelValues(source, kind, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

func IncAlertRaised(kind string) {
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(kind).Inc()
	}
}

func IncAlertSuppressed(kind string) {
	if alertsSuppressed != nil {
		alertsSuppressed.WithLabelValues(kind).Inc()
	}
}

func IncAlertResolved(kind string) {
	if alertsResolved != nil {
		alertsResolved.WithLabelValues(kind).Inc()
	}
}

func IncNotifyError(notifier string) {
	if notifyErrors != nil {
		notifyErrors.WithLabelValues(notifier).Inc()
	}
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
