// Package telemetry holds the Prometheus collectors shared by the fetcher,
// the analytics pipeline and the web server.
package telemetry

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts calls to the YouTube Data API by endpoint and outcome.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytanalytics_api_requests_total",
			Help: "Total YouTube Data API requests, by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	// RequestDuration records dashboard request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytanalytics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// RowsProcessed counts rows produced by the metrics pipeline.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytanalytics_rows_processed_total",
			Help: "Rows produced by the metrics pipeline, by table.",
		},
		[]string{"table"},
	)
)

// Outcome labels for APIRequests.
const (
	OutcomeOK        = "ok"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
)

// RegisterSessionGauge exposes the number of live sessions. The callback is
// evaluated on every scrape. Registering twice is a no-op.
func RegisterSessionGauge(count func() float64) {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ytanalytics_sessions_active",
			Help: "Number of dashboard sessions held in memory.",
		},
		count,
	)
	if err := prometheus.Register(g); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

var knownRoutes = map[string]bool{
	"/":                    true,
	"/health":              true,
	"/metrics":             true,
	"/session/key":         true,
	"/session/clear":       true,
	"/search":              true,
	"/channels/predefined": true,
	"/channels/analyze":    true,
	"/dashboard":           true,
	"/videos":              true,
	"/videos/analyze":      true,
	"/videos/export.csv":   true,
}

// Route maps a request path to a metric label. Static assets share one
// label and paths outside the dashboard are reported as "other".
func Route(path string) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case path == "":
		return "/"
	case knownRoutes[path]:
		return path
	default:
		return "other"
	}
}
