package normalize

import (
	"fmt"
	"strings"

	"draftline-hq/meridian/pkg/policy"
)

// migration collects the runtime policies and notes produced while folding
// legacy shorthand fields into the canonical declaration.
type migration struct {
	normalizer *Normalizer
	canonical  *policy.TaskPolicies
	notes      []string
}

// run processes every legacy field and returns the derived runtime
// policies, in declaration order. Malformed shapes are skipped with a note;
// migration never fails.
func (m *migration) run(raw *policy.RawTaskPolicies) []*policy.RuntimePolicy {
	m.migrateVariantCount(raw.VariantCount)

	var derived []*policy.RuntimePolicy
	derived = append(derived, m.migrateReplanAfter(raw.ReplanAfter)...)
	derived = append(derived, m.migrateTriggerReplanAfter(raw.TriggerReplanAfter)...)
	return derived
}

func (m *migration) note(format string, args ...any) {
	m.notes = append(m.notes, fmt.Sprintf(format, args...))
}

// migrateVariantCount folds legacy variantCount into
// planner.topology.variantCount.
func (m *migration) migrateVariantCount(v any) {
	if v == nil {
		return
	}

	count, ok := asInt(v)
	if !ok {
		m.note("ignored malformed legacy variantCount (expected a number, got %T)", v)
		return
	}

	if m.canonical.Planner == nil {
		m.canonical.Planner = &policy.PlannerPolicy{}
	}
	if m.canonical.Planner.Topology == nil {
		m.canonical.Planner.Topology = &policy.TopologyHints{}
	}
	m.canonical.Planner.Topology.VariantCount = count

	m.normalizer.metrics.RecordLegacyMigration("variantCount")
	m.note("migrated legacy variantCount %d into planner.topology.variantCount", count)
}

// migrateReplanAfter emits one onNodeComplete/replan policy per entry.
// Entries that look like capability ids (they contain a dot) select by
// capability id; anything else is taken as a stage label. The heuristic is
// inherited behavior: there is no formal disambiguation rule, so both code
// paths are kept.
func (m *migration) migrateReplanAfter(v any) []*policy.RuntimePolicy {
	if v == nil {
		return nil
	}

	entries, ok := v.([]any)
	if !ok {
		m.note("ignored malformed legacy replanAfter (expected a list, got %T)", v)
		return nil
	}

	var derived []*policy.RuntimePolicy
	for i, entry := range entries {
		target, ok := entry.(string)
		if !ok || target == "" {
			m.note("ignored malformed legacy replanAfter entry at index %d (expected a string, got %T)", i, entry)
			continue
		}

		selector := &policy.Selector{Stage: target}
		if looksLikeCapabilityID(target) {
			selector = &policy.Selector{CapabilityID: target}
		}

		derived = append(derived, &policy.RuntimePolicy{
			ID:      fmt.Sprintf("legacy-replan-after-%d", i+1),
			Enabled: true,
			Trigger: policy.Trigger{
				Kind:     policy.TriggerOnNodeComplete,
				Selector: selector,
			},
			Action: policy.Action{Kind: policy.ActionReplan},
		})
		m.normalizer.metrics.RecordLegacyMigration("replanAfter")
	}

	if len(derived) > 0 {
		m.note("migrated %d legacy replan directives from replanAfter", len(derived))
	}
	return derived
}

// migrateTriggerReplanAfter emits one onNodeComplete/replan policy per
// {capabilityId, reason} entry, carrying the reason as the replan rationale.
func (m *migration) migrateTriggerReplanAfter(v any) []*policy.RuntimePolicy {
	if v == nil {
		return nil
	}

	entries, ok := v.([]any)
	if !ok {
		m.note("ignored malformed legacy triggerReplanAfter (expected a list, got %T)", v)
		return nil
	}

	var derived []*policy.RuntimePolicy
	for i, entry := range entries {
		fields, ok := toStringMap(entry)
		if !ok {
			m.note("ignored malformed legacy triggerReplanAfter entry at index %d (expected an object, got %T)", i, entry)
			continue
		}

		capabilityID, _ := fields["capabilityId"].(string)
		if capabilityID == "" {
			m.note("ignored legacy triggerReplanAfter entry at index %d without capabilityId", i)
			continue
		}
		reason, _ := fields["reason"].(string)

		derived = append(derived, &policy.RuntimePolicy{
			ID:      fmt.Sprintf("legacy-trigger-replan-%d", i+1),
			Enabled: true,
			Trigger: policy.Trigger{
				Kind:     policy.TriggerOnNodeComplete,
				Selector: &policy.Selector{CapabilityID: capabilityID},
			},
			Action: policy.Action{Kind: policy.ActionReplan, Rationale: reason},
		})
		m.normalizer.metrics.RecordLegacyMigration("triggerReplanAfter")
	}

	if len(derived) > 0 {
		m.note("migrated %d legacy replan directives from triggerReplanAfter", len(derived))
	}
	return derived
}

// looksLikeCapabilityID reports whether a replanAfter entry names a
// capability rather than a stage. Capability ids are dotted
// ("qa.agent"); stage labels are flat ("qa").
func looksLikeCapabilityID(s string) bool {
	return strings.Contains(s, ".")
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// toStringMap normalizes the map shapes the YAML and JSON decoders produce.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}
