// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of dashboard requests by logical query",
		},
		[]string{"query", "strategy", "status"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_request_duration_seconds",
			Help: "Duration of dashboard request handling in seconds",
		},
		[]string{"query", "strategy"},
	)

	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Total number of upstream calls by outcome",
		},
		[]string{"host", "outcome"},
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "upstream_call_duration_seconds",
			Help: "Duration of upstream calls in seconds",
		},
		[]string{"host"},
	)

	FallbackSubstitutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_substitutions_total",
			Help: "Number of responses served from the fallback catalog",
		},
		[]string{"query", "reason"},
	)

	MalformedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filter_malformed_records_total",
			Help: "Records excluded from date-filtered results because their date did not parse",
		},
	)
)
