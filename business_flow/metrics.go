package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Publish attempts partitioned by platform, post type and outcome
	postingAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posting_attempts_total",
			Help: "Total number of platform publish attempts",
		},
		[]string{"platform", "post_type", "status"},
	)

	postingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "posting_duration_seconds",
			Help:    "Time spent publishing one post to one platform",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"platform"},
	)

	// Refused reservations partitioned by quota kind
	quotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Total number of refused quota reservations",
		},
		[]string{"kind"},
	)

	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of content pipeline runs by outcome",
		},
		[]string{"outcome"},
	)
)
