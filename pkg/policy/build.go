package policy

import (
	"fmt"
)

// Build converts a raw runtime policy declaration into its canonical form,
// defaulting enabled to true and validating the trigger and action variants.
// Structural problems are accumulated on errs; a nil return means the policy
// was rejected. DSL conditions are carried uncompiled; the normalizer owns
// invoking the compiler.
func (r *RawRuntimePolicy) Build(index int, errs *DeclErrorList) *RuntimePolicy {
	id := r.ID
	if id == "" {
		errs.Add(ErrorTypeStructural, "", fmt.Sprintf("runtime policy at index %d has no id", index))
		return nil
	}

	trigger, ok := r.Trigger.build(id, errs)
	if !ok {
		return nil
	}

	action, ok := r.Action.build(id, errs)
	if !ok {
		return nil
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &RuntimePolicy{
		ID:      id,
		Enabled: enabled,
		Trigger: trigger,
		Action:  action,
	}
}

func (r *RawTrigger) build(policyID string, errs *DeclErrorList) (Trigger, bool) {
	kind := TriggerKind(r.Kind)
	if !knownTrigger(kind) {
		errs.Add(ErrorTypeStructural, policyID, fmt.Sprintf("unknown trigger kind %q", r.Kind))
		return Trigger{}, false
	}

	trigger := Trigger{Kind: kind, TimeoutMs: r.Ms}

	if r.Selector != nil {
		trigger.Selector = &Selector{
			CapabilityID: r.Selector.CapabilityID,
			Kind:         r.Selector.Kind,
			Stage:        r.Selector.Stage,
		}
	}

	if len(r.Condition) > 0 {
		cond, ok := buildCondition(r.Condition, policyID, errs)
		if !ok {
			return Trigger{}, false
		}
		trigger.Condition = cond
	}

	return trigger, true
}

func (r *RawAction) build(policyID string, errs *DeclErrorList) (Action, bool) {
	kind := ActionKind(r.Kind)
	if !knownAction(kind) {
		errs.Add(ErrorTypeStructural, policyID, fmt.Sprintf("unknown action kind %q", r.Kind))
		return Action{}, false
	}

	// A goto without a target can never execute correctly, so it is
	// rejected here rather than surfacing at evaluation time.
	if kind == ActionGoto && r.Next == "" {
		errs.Add(ErrorTypeStructural, policyID, "goto action requires a next node id")
		return Action{}, false
	}

	return Action{
		Kind:      kind,
		Rationale: r.Rationale,
		Next:      r.Next,
		Message:   r.Message,
		Event:     r.Event,
		Payload:   r.Payload,
		Reason:    r.Reason,
	}, true
}

func knownTrigger(kind TriggerKind) bool {
	for _, k := range KnownTriggerKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func knownAction(kind ActionKind) bool {
	for _, k := range KnownActionKinds {
		if k == kind {
			return true
		}
	}
	return false
}
