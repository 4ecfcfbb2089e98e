// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendboard_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AttendanceActions counts clock-in/clock-out attempts by outcome.
	AttendanceActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_attendance_actions_total",
		Help: "Clock-in and clock-out attempts by outcome.",
	}, []string{"action", "outcome"})

	// BannerResolutions counts active-banner lookups by the source of the answer.
	BannerResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_banner_resolutions_total",
		Help: "Active banner resolutions, stored or default.",
	}, []string{"source"})

	BannerCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_banner_cache_total",
		Help: "Live banner cache lookups by result.",
	}, []string{"result"})

	BlobUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_blob_uploads_total",
		Help: "Image uploads by backend and outcome.",
	}, []string{"backend", "outcome"})

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendboard_blob_uploaded_bytes_total",
		Help: "Bytes persisted by the blob store.",
	})

	QueueEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendboard_queue_events_total",
		Help: "Events consumed by the worker, by type.",
	}, []string{"type"})
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
