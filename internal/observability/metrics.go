package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "snapshots_fetched_total",
		Help:      "Total number of new snapshot files picked up by the poller",
	})

	SnapshotsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "snapshots_skipped_total",
		Help:      "Snapshot files skipped without processing",
	}, []string{"reason"})

	SnapshotsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "snapshots_processed_total",
		Help:      "Snapshots fully processed by a pipeline worker",
	}, []string{"status"})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in snapshots",
	})

	FacesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "faces_matched_total",
		Help:      "Match attempts by outcome",
	}, []string{"outcome"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facetrack",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	MatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facetrack",
		Name:      "match_duration_seconds",
		Help:      "Duration of identity matching by path",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"path"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facetrack",
		Name:      "queue_depth",
		Help:      "Number of snapshots waiting in the pipeline queue",
	})

	VisitsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "visits_opened_total",
		Help:      "Visit segments opened by the presence tracker",
	})

	VisitsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facetrack",
		Name:      "visits_closed_total",
		Help:      "Visit segments closed by the presence tracker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facetrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facetrack",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
