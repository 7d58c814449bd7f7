package engine

import (
	"log/slog"
	"time"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/telemetry/metrics"
)

// Engine resolves lifecycle events against a run's normalized policies.
//
// The engine owns no mutable state: every call reads only the arguments it
// is given, so one Engine value is safe to share across any number of runs
// and goroutines. The orchestrator is responsible for normalizing once per
// run, caching the result, and serializing state transitions per run id
// when it applies the returned effect.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
}

// New creates an engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default().With("component", "policy.engine")
	}
	return &Engine{logger: logger}
}

// WithMetrics attaches engine metrics.
func (e *Engine) WithMetrics(m *metrics.EngineMetrics) *Engine {
	e.metrics = m
	return e
}

// ResolveEffect returns the typed effect for the first policy, in list
// order, whose trigger matches the event and whose condition holds against
// the snapshot. It returns nil when no enabled policy matches, the
// expected "no intervention" outcome, not an error.
func (e *Engine) ResolveEffect(normalized *policy.NormalizedPolicies, event Event, snap Snapshot) *Effect {
	start := time.Now()
	defer func() {
		e.metrics.RecordEvaluation(string(event.Kind), time.Since(start))
	}()

	for _, p := range e.Match(normalized, event) {
		if !e.Evaluate(p, snap) {
			continue
		}

		effect := buildEffect(p, event)
		e.metrics.RecordEffect(string(effect.Kind))
		e.logger.Info("policy effect resolved",
			"policy_id", effect.PolicyID,
			"trigger", effect.Trigger,
			"action", effect.Kind,
			"phase", effect.Phase,
		)
		return effect
	}

	return nil
}

// EvaluateRunStartEffect resolves the run-start effect. It is a distinct
// entry point because onStart has no node selector context: it runs exactly
// once, before any node-scoped event, and only ever considers onStart
// policies.
func (e *Engine) EvaluateRunStartEffect(normalized *policy.NormalizedPolicies, snap Snapshot) *Effect {
	return e.ResolveEffect(normalized, Event{Kind: policy.TriggerOnStart}, snap)
}
