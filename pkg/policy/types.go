package policy

import (
	"draftline-hq/meridian/pkg/rcl"
	"draftline-hq/meridian/pkg/rcl/ast"
)

// TriggerKind identifies the lifecycle moment a runtime policy fires on.
type TriggerKind string

const (
	TriggerOnStart          TriggerKind = "onStart"
	TriggerOnNodeComplete   TriggerKind = "onNodeComplete"
	TriggerOnTimeout        TriggerKind = "onTimeout"
	TriggerOnValidationFail TriggerKind = "onValidationFail"
	TriggerManual           TriggerKind = "manual"
)

// KnownTriggerKinds lists every supported trigger kind.
var KnownTriggerKinds = []TriggerKind{
	TriggerOnStart,
	TriggerOnNodeComplete,
	TriggerOnTimeout,
	TriggerOnValidationFail,
	TriggerManual,
}

// ActionKind identifies the intervention a runtime policy requests.
type ActionKind string

const (
	ActionReplan ActionKind = "replan" // regenerate the remaining plan graph
	ActionHITL   ActionKind = "hitl"   // pause for a human decision
	ActionGoto   ActionKind = "goto"   // jump to another node
	ActionFail   ActionKind = "fail"   // fail the run
	ActionEmit   ActionKind = "emit"   // emit a side signal
	ActionPause  ActionKind = "pause"  // pause the run
)

// KnownActionKinds lists every supported action kind.
var KnownActionKinds = []ActionKind{
	ActionReplan,
	ActionHITL,
	ActionGoto,
	ActionFail,
	ActionEmit,
	ActionPause,
}

// Selector optionally constrains a node-scoped trigger to particular nodes.
// Empty dimensions are wildcards; declared dimensions must all match.
type Selector struct {
	CapabilityID string
	Kind         string
	Stage        string
}

// IsEmpty returns true when no dimension is declared.
func (s *Selector) IsEmpty() bool {
	return s == nil || (s.CapabilityID == "" && s.Kind == "" && s.Stage == "")
}

// Condition gates a matched trigger on the run context snapshot. Exactly one
// of the two authoring forms is populated: DSL (compiled at normalization
// time into Compiled) or Node (natively structured logic).
type Condition struct {
	// DSL is the RCL expression as authored, empty for native conditions.
	DSL string

	// Compiled is the compiler output for DSL. Set by the normalizer.
	Compiled *rcl.CompiledCondition

	// Node is the natively structured logic tree, nil for DSL conditions.
	Node *ast.Node
}

// Logic returns the evaluable logic tree for this condition, or nil when
// the condition has not been compiled yet.
func (c *Condition) Logic() *ast.Node {
	if c == nil {
		return nil
	}
	if c.Compiled != nil {
		return c.Compiled.Logic
	}
	return c.Node
}

// Trigger is the canonical tagged variant describing when a policy fires.
// Selector and Condition apply to node-scoped kinds; TimeoutMs carries the
// author-declared threshold for onTimeout (informational: the orchestrator,
// not this engine, detects that the threshold was crossed).
type Trigger struct {
	Kind      TriggerKind
	Selector  *Selector
	Condition *Condition
	TimeoutMs int64
}

// Action is the canonical tagged variant describing the requested
// intervention. Kind selects which of the remaining fields are meaningful.
type Action struct {
	Kind      ActionKind
	Rationale string         // replan, hitl
	Next      string         // goto: target node id, required
	Message   string         // fail
	Event     string         // emit: signal name
	Payload   map[string]any // emit
	Reason    string         // pause
}

// RuntimePolicy is the canonical unit the engine evaluates. List order is
// preserved end to end and is the tie-break order for matching.
type RuntimePolicy struct {
	ID      string
	Enabled bool
	Trigger Trigger
	Action  Action
}

// SelectionPolicy carries capability selection requirements and preferences
// for the planner.
type SelectionPolicy struct {
	Require []string
	Prefer  []string
}

// TopologyHints carries plan-shape hints such as the desired variant count.
type TopologyHints struct {
	VariantCount int
}

// PlannerPolicy is the planner-facing sub-policy. The engine normalizes and
// carries it; the planner itself is an external collaborator.
type PlannerPolicy struct {
	Selection *SelectionPolicy
	Objective string
	Topology  *TopologyHints
}

// TaskPolicies is the canonical policy declaration for one run.
type TaskPolicies struct {
	Planner *PlannerPolicy
	Runtime []*RuntimePolicy
}

// NormalizedPolicies is the normalizer output: the canonical declaration,
// the flat runtime policy list the engine evaluates, and a human-readable
// record of any legacy migrations performed. It is produced once per run
// and is immutable for the run's lifetime.
type NormalizedPolicies struct {
	Canonical *TaskPolicies
	Runtime   []*RuntimePolicy

	// LegacyNotes is non-empty only when legacy fields were migrated or
	// malformed legacy shapes were skipped. Never silently dropped.
	LegacyNotes []string
}
