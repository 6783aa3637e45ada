// Package metrics provides Prometheus metrics for the privacy gateway,
// adapted from the teacher's internal/metrics: the same promauto-backed
// counters/gauges/histograms, re-scoped from proxy/secret-interception
// names to the turn-processing and entity/placeholder vocabulary.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts completed ProcessTurn calls.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "privacy_gateway_turns_total",
		Help: "Total number of turns processed",
	}, []string{"outcome"}) // "ok" or "error"

	// EntitiesDetectedTotal counts detected entities by label.
	EntitiesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "privacy_gateway_entities_detected_total",
		Help: "Total number of entities detected",
	}, []string{"label"})

	// PlaceholdersCreatedTotal counts newly minted placeholders.
	PlaceholdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "privacy_gateway_placeholders_created_total",
		Help: "Total number of new placeholders created",
	}, []string{"label", "strategy"})

	// PlaceholdersRestoredTotal counts placeholders restored in responses.
	PlaceholdersRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "privacy_gateway_placeholders_restored_total",
		Help: "Total number of placeholders restored to originals in responses",
	})

	// EntityStoreSize tracks the number of mappings stored.
	EntityStoreSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "privacy_gateway_entity_store_size",
		Help: "Current number of entity mappings stored, by thread",
	}, []string{"thread"})

	// ProcessTurnStageDuration tracks per-suspension-point latency inside
	// ProcessTurn: conversation_read, detect, replace, llm_invoke,
	// conversation_append, restore.
	ProcessTurnStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "privacy_gateway_process_turn_stage_duration_seconds",
		Help:    "Duration of each ProcessTurn stage in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// DetectorDuration tracks detector call latency by backend.
	DetectorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "privacy_gateway_detector_duration_seconds",
		Help:    "Time spent in detector calls",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"backend"})

	// StoreErrorsTotal counts entity/conversation store errors.
	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "privacy_gateway_store_errors_total",
		Help: "Total number of entity/conversation store errors",
	}, []string{"store", "op"})

	// DetectorErrorsTotal counts detector failures after retry exhaustion.
	DetectorErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "privacy_gateway_detector_errors_total",
		Help: "Total number of detector calls that exhausted retries",
	})

	// LLMErrorsTotal counts wrapped-LLM call failures.
	LLMErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "privacy_gateway_llm_errors_total",
		Help: "Total number of wrapped LLM call failures",
	})
)

// Stages implements wrapper.StageRecorder by recording a histogram
// observation per named stage.
type Stages struct{}

// RecordStage implements wrapper.StageRecorder.
func (Stages) RecordStage(stage string, d time.Duration) {
	ProcessTurnStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordEntityDetected records one detected entity of label.
func RecordEntityDetected(label string) {
	EntitiesDetectedTotal.WithLabelValues(label).Inc()
}

// RecordPlaceholderCreated records one newly minted placeholder.
func RecordPlaceholderCreated(label, strategy string) {
	PlaceholdersCreatedTotal.WithLabelValues(label, strategy).Inc()
}

// RecordTurn records the outcome of one ProcessTurn call.
func RecordTurn(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	TurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreError records a store failure.
func RecordStoreError(store, op string) {
	StoreErrorsTotal.WithLabelValues(store, op).Inc()
}

// RecordDetectorDuration records detector call latency.
func RecordDetectorDuration(backend string, seconds float64) {
	DetectorDuration.WithLabelValues(backend).Observe(seconds)
}
