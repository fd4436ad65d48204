package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casetrail_events_ingested_total",
		Help: "Total number of events durably written to the store.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casetrail_events_dropped_total",
		Help: "Total number of events rejected due to a full ingest queue.",
	})

	SignalsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casetrail_signals_fired_total",
		Help: "Total number of signals extracted, labelled by signal name.",
	}, []string{"signal"})

	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casetrail_decisions_total",
		Help: "Total number of routing decisions, labelled by routed path.",
	}, []string{"routed_path"})

	GuardrailOverrides = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casetrail_guardrail_overrides_total",
		Help: "Total number of decisions where a guardrail changed the advisory path.",
	})

	AdvisoryFailSafes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casetrail_advisory_failsafe_total",
		Help: "Total number of advisory payloads replaced by the fail-safe recommendation.",
	})

	ActionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casetrail_actions_recorded_total",
		Help: "Total number of audit actions recorded, labelled by kind.",
	}, []string{"kind"})

	DecisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "casetrail_decision_duration_ms",
		Help:    "End-to-end decision pipeline latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	IngestQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casetrail_ingest_queue_utilization_ratio",
		Help: "Current ingest queue utilization (0-1).",
	})
)
