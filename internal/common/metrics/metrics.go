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

	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_decisions_total",
			Help: "Routing decisions by primary agent and mode",
		},
		[]string{"primary_agent", "mode"},
	)

	RoutingPrimaryConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "router_primary_confidence",
			Help:    "Selection confidence of the primary agent",
			Buckets: []float64{0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95},
		},
	)

	QueryIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_query_intents_total",
			Help: "Analyzed queries by detected intent and complexity",
		},
		[]string{"intent", "complexity"},
	)

	FeedbackOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_feedback_outcomes_total",
			Help: "Recorded agent outcomes",
		},
		[]string{"agent", "outcome"},
	)

	AuditRecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_audit_records_dropped_total",
			Help: "Audit records dropped because the sink buffer was full",
		},
	)

	MemoryTurnsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_turns_recorded_total",
			Help: "Conversation turns recorded by success",
		},
		[]string{"success"},
	)

	MemoryIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_identities",
			Help: "Identity keys currently held in memory",
		},
	)

	EscalationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_escalations_total",
			Help: "Critical-urgency escalations by publish status",
		},
		[]string{"status"},
	)
)

// Outcome maps a success flag onto the label value used by FeedbackOutcomes.
func Outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
