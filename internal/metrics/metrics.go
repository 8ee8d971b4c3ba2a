package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream calls by target (law, admrul), mode and outcome
	// (success, http, decode, network).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openlaw_upstream_requests_total",
			Help: "Total number of requests sent to the open law API",
		},
		[]string{"target", "mode", "outcome"},
	)

	BlobCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openlaw_blob_cache_lookups_total",
			Help: "Total number of blob cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openlaw_http_requests_total",
			Help: "Total number of API requests handled, by action and status code",
		},
		[]string{"action", "status"},
	)
)
