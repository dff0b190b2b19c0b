package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobs_viewer"

// Backend endpoint labels.
const (
	EndpointDates = "dates"
	EndpointJobs  = "jobs"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var BackendRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Requests sent to the listings API, by endpoint and outcome.",
	},
	[]string{"endpoint", "outcome"},
)

var BackendLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of requests to the listings API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"endpoint"},
)

var RejectedJobRecords = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_job_records_total",
		Help:      "Job records dropped at decode time (missing id or score, duplicate id).",
	},
)

var StaleResponses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Backend responses discarded because a newer load was issued.",
	},
	[]string{"endpoint"},
)

var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Page sessions currently held in memory.",
	},
)
