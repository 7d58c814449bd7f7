package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks policy normalization and evaluation.
//
// Metrics:
//   - meridian_policy_normalizations_total: normalizations by outcome
//   - meridian_policy_legacy_migrations_total: legacy policies migrated by source field
//   - meridian_policy_compile_warnings_total: degraded condition compilations
//   - meridian_policy_evaluations_total: effect resolutions by trigger kind
//   - meridian_policy_effects_total: resolved effects by action kind
//   - meridian_policy_evaluation_duration_seconds: effect resolution duration
type EngineMetrics struct {
	normalizationsTotal   *prometheus.CounterVec
	legacyMigrationsTotal *prometheus.CounterVec
	compileWarningsTotal  prometheus.Counter
	evaluationsTotal      *prometheus.CounterVec
	effectsTotal          *prometheus.CounterVec
	evaluationDuration    *prometheus.HistogramVec
}

// NewEngineMetrics creates and registers engine metrics with the provided
// registry.
func NewEngineMetrics(namespace string, registry *prometheus.Registry) *EngineMetrics {
	if namespace == "" {
		namespace = "meridian"
	}

	em := &EngineMetrics{
		normalizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "normalizations_total",
				Help:      "Total number of policy normalizations",
			},
			[]string{"outcome"},
		),

		legacyMigrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "legacy_migrations_total",
				Help:      "Total number of runtime policies migrated from legacy shorthand",
			},
			[]string{"source_field"},
		),

		compileWarningsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "compile_warnings_total",
				Help:      "Total number of condition compilations that degraded to never-matching",
			},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "evaluations_total",
				Help:      "Total number of effect resolutions by trigger kind",
			},
			[]string{"trigger"},
		),

		effectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "effects_total",
				Help:      "Total number of resolved effects by action kind",
			},
			[]string{"action"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of effect resolution in seconds",
				// Evaluations are in-memory and should be well under a millisecond.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 12), // 1µs to 2ms
			},
			[]string{"trigger"},
		),
	}

	registry.MustRegister(
		em.normalizationsTotal,
		em.legacyMigrationsTotal,
		em.compileWarningsTotal,
		em.evaluationsTotal,
		em.effectsTotal,
		em.evaluationDuration,
	)

	return em
}

// RecordNormalization records one completed normalization.
// Outcome is "clean", "migrated" (legacy fields folded in) or "rejected".
func (em *EngineMetrics) RecordNormalization(outcome string) {
	if em == nil {
		return
	}
	em.normalizationsTotal.WithLabelValues(outcome).Inc()
}

// RecordLegacyMigration records one runtime policy derived from a legacy
// field ("replanAfter", "triggerReplanAfter", "variantCount").
func (em *EngineMetrics) RecordLegacyMigration(sourceField string) {
	if em == nil {
		return
	}
	em.legacyMigrationsTotal.WithLabelValues(sourceField).Inc()
}

// RecordCompileWarning records a condition compilation that degraded.
func (em *EngineMetrics) RecordCompileWarning() {
	if em == nil {
		return
	}
	em.compileWarningsTotal.Inc()
}

// RecordEvaluation records one effect resolution pass.
func (em *EngineMetrics) RecordEvaluation(trigger string, duration time.Duration) {
	if em == nil {
		return
	}
	em.evaluationsTotal.WithLabelValues(trigger).Inc()
	em.evaluationDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordEffect records one resolved effect.
func (em *EngineMetrics) RecordEffect(action string) {
	if em == nil {
		return
	}
	em.effectsTotal.WithLabelValues(action).Inc()
}
