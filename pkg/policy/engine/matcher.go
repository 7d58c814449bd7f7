package engine

import (
	"draftline-hq/meridian/pkg/policy"
)

// NodeDescriptor identifies the plan node a lifecycle event concerns.
type NodeDescriptor struct {
	ID           string
	CapabilityID string
	Kind         string
	Label        string
	Stage        string
}

// Event is one lifecycle event: a run starting, a node completing, a
// timeout firing, a validation failing, or a manual invocation. Node is nil
// for run-scoped kinds. ElapsedMs is informational: the orchestrator has
// already established that a timeout threshold was crossed before it emits
// an onTimeout event, so the engine does not re-check timing.
type Event struct {
	Kind      policy.TriggerKind
	Node      *NodeDescriptor
	ElapsedMs int64
}

// Match filters the normalized runtime policies down to those whose trigger
// kind and selector match the event. Disabled policies never match. Output
// preserves the original list order, which is the tie-break order for
// effect resolution.
func (e *Engine) Match(normalized *policy.NormalizedPolicies, event Event) []*policy.RuntimePolicy {
	if normalized == nil {
		return nil
	}

	var matched []*policy.RuntimePolicy
	for _, p := range normalized.Runtime {
		if !p.Enabled {
			continue
		}
		if p.Trigger.Kind != event.Kind {
			continue
		}
		if !selectorMatches(p.Trigger.Selector, event.Node) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// selectorMatches checks every declared selector dimension against the
// event's node. Undeclared dimensions are wildcards. A declared selector
// with no node to match against fails.
func selectorMatches(sel *policy.Selector, node *NodeDescriptor) bool {
	if sel.IsEmpty() {
		return true
	}
	if node == nil {
		return false
	}

	if sel.CapabilityID != "" && sel.CapabilityID != node.CapabilityID {
		return false
	}
	if sel.Kind != "" && sel.Kind != node.Kind {
		return false
	}
	if sel.Stage != "" && sel.Stage != node.Stage {
		return false
	}
	return true
}
