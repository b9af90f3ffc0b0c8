package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "files_discovered_total",
		Help:      "Total number of candidate files seen by the scanner",
	})

	FilesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "files_skipped_total",
		Help:      "Total number of files skipped during scanning",
	}, []string{"reason"})

	JobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "jobs_started_total",
		Help:      "Total number of jobs started",
	}, []string{"type"})

	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "jobs_completed_total",
		Help:      "Total number of jobs finished, by outcome",
	}, []string{"type", "status"})

	JobsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photovault",
		Name:      "jobs_pending",
		Help:      "Number of jobs waiting to be scheduled",
	})

	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photovault",
		Name:      "jobs_running",
		Help:      "Number of currently executing jobs",
	})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected by the remote service",
	})

	FacesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "faces_routed_total",
		Help:      "Faces routed by the auto-recognition pipeline",
	}, []string{"outcome"})

	RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "photovault",
		Name:      "recognition_duration_seconds",
		Help:      "Duration of remote recognition calls",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	ReconcilerDivergences = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "reconciler_divergences_total",
		Help:      "Divergences detected between local and remote stores",
	}, []string{"kind"})

	ReconcilerRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "photovault",
		Name:      "reconciler_repairs_total",
		Help:      "Orphaned faces re-uploaded to the remote store",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photovault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "photovault",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
