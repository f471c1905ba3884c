// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal tracks duplicate searches by outcome
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "searches_total",
			Help:      "Total number of duplicate searches by status",
		},
		[]string{"status"},
	)

	// SearchCandidates tracks how many candidates each search returned
	SearchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "search_candidates",
			Help:      "Number of candidates returned per duplicate search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// SearchDuration tracks duplicate search duration in seconds
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "search_duration_seconds",
			Help:      "Duration of duplicate searches in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// DecisionsTotal tracks recorded deduplication decisions by type
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "decisions_total",
			Help:      "Total number of deduplication decisions recorded by type",
		},
		[]string{"decision"},
	)

	// AuditWriteDuration tracks audit insert duration in seconds
	AuditWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "audit",
			Name:      "write_duration_seconds",
			Help:      "Duration of audit trail writes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// ClusterScansTotal tracks cluster mining runs by outcome
	ClusterScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clusters",
			Name:      "scans_total",
			Help:      "Total number of cluster mining scans by status",
		},
		[]string{"status"},
	)

	// ClusterScanDuration tracks cluster mining scan duration in seconds
	ClusterScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "clusters",
			Name:      "scan_duration_seconds",
			Help:      "Duration of cluster mining scans in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordSearch records a completed search and its candidate count.
func RecordSearch(duration time.Duration, candidates int, success bool) {
	SearchesTotal.WithLabelValues(statusLabel(success)).Inc()
	if success {
		SearchCandidates.Observe(float64(candidates))
	}
	SearchDuration.Observe(duration.Seconds())
}

// RecordDecision records a recorded decision by type.
func RecordDecision(decision string, auditDuration time.Duration) {
	DecisionsTotal.WithLabelValues(decision).Inc()
	AuditWriteDuration.Observe(auditDuration.Seconds())
}

// RecordClusterScan records a cluster mining run.
func RecordClusterScan(duration time.Duration, success bool) {
	ClusterScansTotal.WithLabelValues(statusLabel(success)).Inc()
	ClusterScanDuration.Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish attempt.
func RecordKafkaPublish(topic string, success bool) {
	KafkaMessagesPublished.WithLabelValues(topic, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
