package normalize

import (
	"log/slog"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/rcl"
	"draftline-hq/meridian/pkg/telemetry/metrics"
)

// Normalizer migrates raw policy declarations into their canonical form.
// It runs exactly once per run envelope, at run start; the result is cached
// by the orchestrator and evaluated repeatedly without re-compilation.
type Normalizer struct {
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
}

// New creates a normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default().With("component", "policy.normalize")
	}
	return &Normalizer{logger: logger}
}

// WithMetrics attaches engine metrics.
func (n *Normalizer) WithMetrics(m *metrics.EngineMetrics) *Normalizer {
	n.metrics = m
	return n
}

// Normalize converts a raw declaration into NormalizedPolicies.
//
// Canonical runtime policies pass through untouched apart from defaulting
// enabled to true and compiling any inline DSL condition. Legacy shorthand
// fields are migrated into equivalent runtime policies, appended after the
// authored ones so author intent keeps priority. Malformed legacy shapes
// are skipped with a note; the only fatal errors are structural problems in
// canonical policies (unknown variant kinds, a goto without a target).
func (n *Normalizer) Normalize(raw *policy.RawTaskPolicies) (*policy.NormalizedPolicies, error) {
	if raw == nil {
		raw = &policy.RawTaskPolicies{}
	}

	errs := &policy.DeclErrorList{}
	canonical := &policy.TaskPolicies{
		Planner: buildPlanner(raw.Planner),
	}

	runtime := make([]*policy.RuntimePolicy, 0, len(raw.Runtime))
	for i := range raw.Runtime {
		p := raw.Runtime[i].Build(i, errs)
		if p == nil {
			continue
		}
		n.compileCondition(p)
		runtime = append(runtime, p)
	}

	mig := &migration{normalizer: n, canonical: canonical}
	runtime = append(runtime, mig.run(raw)...)

	if errs.HasErrors() {
		n.metrics.RecordNormalization("rejected")
		n.logger.Warn("policy declaration rejected",
			"error_count", len(errs.Errors),
		)
		return nil, errs
	}

	canonical.Runtime = runtime

	outcome := "clean"
	if len(mig.notes) > 0 {
		outcome = "migrated"
	}
	n.metrics.RecordNormalization(outcome)

	n.logger.Info("policies normalized",
		"runtime_count", len(runtime),
		"legacy_notes", len(mig.notes),
	)

	return &policy.NormalizedPolicies{
		Canonical:   canonical,
		Runtime:     runtime,
		LegacyNotes: mig.notes,
	}, nil
}

// compileCondition compiles an inline DSL condition in place.
func (n *Normalizer) compileCondition(p *policy.RuntimePolicy) {
	cond := p.Trigger.Condition
	if cond == nil || cond.DSL == "" || cond.Compiled != nil {
		return
	}

	cond.Compiled = rcl.Compile(cond.DSL)

	for _, warning := range cond.Compiled.Warnings {
		n.metrics.RecordCompileWarning()
		n.logger.Warn("condition compilation degraded",
			"policy_id", p.ID,
			"warning", warning,
		)
	}
}

// buildPlanner copies the planner sub-policy, deduplicating selection
// arrays order-preserving.
func buildPlanner(raw *policy.RawPlannerPolicy) *policy.PlannerPolicy {
	if raw == nil {
		return nil
	}

	planner := &policy.PlannerPolicy{Objective: raw.Objective}

	if raw.Selection != nil {
		planner.Selection = &policy.SelectionPolicy{
			Require: dedupe(raw.Selection.Require),
			Prefer:  dedupe(raw.Selection.Prefer),
		}
	}

	if raw.Topology != nil {
		planner.Topology = &policy.TopologyHints{VariantCount: raw.Topology.VariantCount}
	}

	return planner
}

// dedupe removes duplicate entries, preserving first-occurrence order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
