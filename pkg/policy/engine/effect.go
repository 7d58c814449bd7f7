package engine

import (
	"draftline-hq/meridian/pkg/policy"
)

// Phase names the lifecycle moment an effect originated from, derived from
// the matched policy's trigger kind. The orchestrator uses it for logging
// and attribution.
const (
	PhaseStartup    = "startup"
	PhaseExecution  = "execution"
	PhaseTimeout    = "timeout"
	PhaseValidation = "validation"
	PhaseManual     = "manual"
)

// Effect is the typed intervention the engine asks the orchestrator to
// perform. Kind selects which of the action fields are meaningful; the
// attribution fields (PolicyID, Trigger, Phase, Rationale) are always set
// so the decision can be logged and audited.
type Effect struct {
	Kind policy.ActionKind

	// Attribution.
	PolicyID  string
	Trigger   policy.TriggerKind
	Phase     string
	Rationale string

	// NodeID is the node the originating event concerned, when any.
	NodeID string

	// Action payload, by kind.
	Next    string         // goto: target node id
	Message string         // fail
	Event   string         // emit: signal name
	Payload map[string]any // emit
	Reason  string         // pause
}

// buildEffect materializes the effect for a matched policy and event.
func buildEffect(p *policy.RuntimePolicy, event Event) *Effect {
	effect := &Effect{
		Kind:      p.Action.Kind,
		PolicyID:  p.ID,
		Trigger:   p.Trigger.Kind,
		Phase:     phaseFor(p.Trigger.Kind),
		Rationale: p.Action.Rationale,
		Next:      p.Action.Next,
		Message:   p.Action.Message,
		Event:     p.Action.Event,
		Payload:   p.Action.Payload,
		Reason:    p.Action.Reason,
	}

	if event.Node != nil {
		effect.NodeID = event.Node.ID
	}

	return effect
}

func phaseFor(kind policy.TriggerKind) string {
	switch kind {
	case policy.TriggerOnStart:
		return PhaseStartup
	case policy.TriggerOnNodeComplete:
		return PhaseExecution
	case policy.TriggerOnTimeout:
		return PhaseTimeout
	case policy.TriggerOnValidationFail:
		return PhaseValidation
	case policy.TriggerManual:
		return PhaseManual
	default:
		return string(kind)
	}
}
