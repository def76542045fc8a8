// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_stage_duration_seconds",
			Help:    "Duration of each analysis pipeline stage per symbol",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_stage_failures_total",
			Help: "Total number of pipeline failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)

	SymbolsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_symbols_analyzed_total",
			Help: "Total number of ticker symbols analyzed successfully",
		},
	)

	PromptChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_prompt_chars",
			Help:    "Size of composed analysis prompts in characters",
			Buckets: prometheus.ExponentialBuckets(1000, 2, 8),
		},
	)

	PromptTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_prompt_truncations_total",
			Help: "Total number of prompts shortened by dropping statement periods",
		},
	)

	MarketDataRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_data_requests_total",
			Help: "Market data HTTP requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)
)
