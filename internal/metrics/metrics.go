package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// Analyses counts pipeline runs by verdict, or "failed".
	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsentry_analyses_total",
			Help: "Listing analyses by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsentry_analysis_cache_hits_total",
		Help: "Analyses served from cache",
	})

	// ImportOutcomes counts per-application import results: imported, skipped, error.
	ImportOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsentry_import_applications_total",
			Help: "Email import outcomes per application",
		},
		[]string{"outcome"},
	)

	ScannedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsentry_scanned_messages_total",
			Help: "Mailbox messages scanned, by result",
		},
		[]string{"result"},
	)
)
