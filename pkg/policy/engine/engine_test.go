package engine

import (
	"encoding/json"
	"testing"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/rcl"
)

func snapshot(t *testing.T, doc string) Snapshot {
	t.Helper()
	if !json.Valid([]byte(doc)) {
		t.Fatalf("invalid snapshot fixture: %s", doc)
	}
	return NewSnapshot(json.RawMessage(doc))
}

func compiled(t *testing.T, dsl string) *policy.Condition {
	t.Helper()
	cc := rcl.Compile(dsl)
	if len(cc.Warnings) != 0 {
		t.Fatalf("fixture condition %q degraded: %v", dsl, cc.Warnings)
	}
	return &policy.Condition{DSL: dsl, Compiled: cc}
}

func replanPolicy(id string, trigger policy.Trigger) *policy.RuntimePolicy {
	return &policy.RuntimePolicy{
		ID:      id,
		Enabled: true,
		Trigger: trigger,
		Action:  policy.Action{Kind: policy.ActionReplan},
	}
}

func normalized(policies ...*policy.RuntimePolicy) *policy.NormalizedPolicies {
	return &policy.NormalizedPolicies{
		Canonical: &policy.TaskPolicies{Runtime: policies},
		Runtime:   policies,
	}
}

func TestResolveEffectFirstMatchWins(t *testing.T) {
	first := replanPolicy("first", policy.Trigger{Kind: policy.TriggerOnNodeComplete})
	second := &policy.RuntimePolicy{
		ID:      "second",
		Enabled: true,
		Trigger: policy.Trigger{Kind: policy.TriggerOnNodeComplete},
		Action:  policy.Action{Kind: policy.ActionFail, Message: "should not fire"},
	}

	event := Event{Kind: policy.TriggerOnNodeComplete, Node: &NodeDescriptor{ID: "n1"}}
	effect := New(nil).ResolveEffect(normalized(first, second), event, Snapshot{})

	if effect == nil {
		t.Fatal("expected an effect")
	}
	if effect.PolicyID != "first" {
		t.Errorf("list order is the tie-break: got %q", effect.PolicyID)
	}
	if effect.Kind != policy.ActionReplan {
		t.Errorf("kind = %q", effect.Kind)
	}
	if effect.NodeID != "n1" {
		t.Errorf("node id = %q", effect.NodeID)
	}
}

func TestResolveEffectNoMatchReturnsNil(t *testing.T) {
	p := replanPolicy("p", policy.Trigger{Kind: policy.TriggerOnTimeout})

	event := Event{Kind: policy.TriggerOnNodeComplete, Node: &NodeDescriptor{ID: "n1"}}
	if effect := New(nil).ResolveEffect(normalized(p), event, Snapshot{}); effect != nil {
		t.Errorf("no matching trigger kind must resolve to nil, got %+v", effect)
	}
}

func TestResolveEffectSkipsDisabled(t *testing.T) {
	disabled := replanPolicy("disabled", policy.Trigger{Kind: policy.TriggerOnNodeComplete})
	disabled.Enabled = false
	fallback := replanPolicy("fallback", policy.Trigger{Kind: policy.TriggerOnNodeComplete})

	event := Event{Kind: policy.TriggerOnNodeComplete, Node: &NodeDescriptor{ID: "n1"}}
	effect := New(nil).ResolveEffect(normalized(disabled, fallback), event, Snapshot{})

	if effect == nil || effect.PolicyID != "fallback" {
		t.Errorf("disabled policies must never match, got %+v", effect)
	}
}

func TestSelectorScoping(t *testing.T) {
	node := &NodeDescriptor{
		ID:           "hook-1",
		CapabilityID: "gen.hook.v2",
		Kind:         "generator",
		Stage:        "hooks",
	}

	tests := []struct {
		name      string
		selector  *policy.Selector
		wantMatch bool
	}{
		{"nil selector is a wildcard", nil, true},
		{"empty selector is a wildcard", &policy.Selector{}, true},
		{"capability match", &policy.Selector{CapabilityID: "gen.hook.v2"}, true},
		{"capability mismatch", &policy.Selector{CapabilityID: "gen.hook.v1"}, false},
		{"kind match", &policy.Selector{Kind: "generator"}, true},
		{"kind mismatch", &policy.Selector{Kind: "validator"}, false},
		{"stage match", &policy.Selector{Stage: "hooks"}, true},
		{"stage mismatch", &policy.Selector{Stage: "qa"}, false},
		{"all dimensions must match", &policy.Selector{CapabilityID: "gen.hook.v2", Stage: "qa"}, false},
		{"all dimensions matching", &policy.Selector{CapabilityID: "gen.hook.v2", Kind: "generator", Stage: "hooks"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := replanPolicy("p", policy.Trigger{
				Kind:     policy.TriggerOnNodeComplete,
				Selector: tt.selector,
			})

			event := Event{Kind: policy.TriggerOnNodeComplete, Node: node}
			effect := New(nil).ResolveEffect(normalized(p), event, Snapshot{})

			if (effect != nil) != tt.wantMatch {
				t.Errorf("match = %v, want %v", effect != nil, tt.wantMatch)
			}
		})
	}
}

func TestSelectorRequiresNode(t *testing.T) {
	p := replanPolicy("p", policy.Trigger{
		Kind:     policy.TriggerManual,
		Selector: &policy.Selector{Stage: "qa"},
	})

	// A declared selector with no node context can never match.
	event := Event{Kind: policy.TriggerManual}
	if effect := New(nil).ResolveEffect(normalized(p), event, Snapshot{}); effect != nil {
		t.Errorf("expected nil, got %+v", effect)
	}
}

func TestEvaluateComparison(t *testing.T) {
	snap := snapshot(t, `{
		"facets": {
			"planKnobs": {"value": {"hookIntensity": 0.4}},
			"qaReport": {"value": {"status": "flagged", "passed": false}}
		}
	}`)

	tests := []struct {
		name string
		dsl  string
		want bool
	}{
		{"numeric true", "facets.planKnobs.hookIntensity < 0.6", true},
		{"numeric false", "facets.planKnobs.hookIntensity < 0.3", false},
		{"numeric boundary", "facets.planKnobs.hookIntensity <= 0.4", true},
		{"string equality", "facets.qaReport.status == 'flagged'", true},
		{"string inequality", "facets.qaReport.status != 'clean'", true},
		{"bool equality", "facets.qaReport.passed == false", true},
		{"missing path is false", "facets.planKnobs.missing > 0", false},
		{"missing facet is false", "facets.nothing.x == 1", false},
		{"cross type comparison is false", "facets.qaReport.status < 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := replanPolicy("p", policy.Trigger{
				Kind:      policy.TriggerOnNodeComplete,
				Condition: compiled(t, tt.dsl),
			})

			if got := New(nil).Evaluate(p, snap); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.dsl, got, tt.want)
			}
		})
	}
}

func TestEvaluateQuantifiers(t *testing.T) {
	snap := snapshot(t, `{
		"facets": {
			"recommendationSet": {"value": [
				{"resolution": "resolved", "score": 0.9},
				{"resolution": "unresolved", "score": 0.2}
			]},
			"emptySet": {"value": []},
			"notAnArray": {"value": {"resolution": "unresolved"}}
		}
	}`)

	tests := []struct {
		name string
		dsl  string
		want bool
	}{
		{"some matches one element", "some(facets.recommendationSet.value, resolution == 'unresolved')", true},
		{"some with no matching element", "some(facets.recommendationSet.value, resolution == 'escalated')", false},
		{"all fails on one element", "all(facets.recommendationSet.value, score >= 0.5)", false},
		{"all holds for every element", "all(facets.recommendationSet.value, score >= 0.1)", true},
		{"some over empty collection is false", "some(facets.emptySet.value, resolution == 'unresolved')", false},
		{"all over empty collection is false", "all(facets.emptySet.value, score >= 0)", false},
		{"some over missing collection is false", "some(facets.missing.value, resolution == 'unresolved')", false},
		{"some over non-array is false", "some(facets.notAnArray.value, resolution == 'unresolved')", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := replanPolicy("p", policy.Trigger{
				Kind:      policy.TriggerOnNodeComplete,
				Condition: compiled(t, tt.dsl),
			})

			if got := New(nil).Evaluate(p, snap); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.dsl, got, tt.want)
			}
		})
	}
}

func TestEvaluateNativeCondition(t *testing.T) {
	raw := policy.RawRuntimePolicy{
		ID: "native",
		Trigger: policy.RawTrigger{
			Kind: "onNodeComplete",
			Condition: map[string]any{
				"<": []any{map[string]any{"var": "facets.planKnobs.hookIntensity"}, 0.6},
			},
		},
		Action: policy.RawAction{Kind: "replan"},
	}

	errs := &policy.DeclErrorList{}
	p := raw.Build(0, errs)
	if p == nil {
		t.Fatalf("build failed: %v", errs)
	}

	snap := snapshot(t, `{"facets": {"planKnobs": {"value": {"hookIntensity": 0.4}}}}`)
	if !New(nil).Evaluate(p, snap) {
		t.Error("native condition must evaluate like its DSL equivalent")
	}
}

func TestEvaluateDegradedConditionNeverMatches(t *testing.T) {
	cc := rcl.Compile("facets.a.x < 1 && facets.b.y > 2")
	if len(cc.Warnings) == 0 {
		t.Fatal("fixture must degrade")
	}

	p := replanPolicy("p", policy.Trigger{
		Kind:      policy.TriggerOnNodeComplete,
		Condition: &policy.Condition{DSL: cc.DSL, Compiled: cc},
	})

	snap := snapshot(t, `{"facets": {"a": {"value": {"x": 0}}, "b": {"value": {"y": 3}}}}`)
	if New(nil).Evaluate(p, snap) {
		t.Error("degraded condition must never match")
	}
}

func TestEvaluateNilConditionIsTrue(t *testing.T) {
	p := replanPolicy("p", policy.Trigger{Kind: policy.TriggerOnNodeComplete})

	if !New(nil).Evaluate(p, Snapshot{}) {
		t.Error("a policy without a condition is unconditionally true")
	}
}

func TestEvaluateUncompiledDSLIsFalse(t *testing.T) {
	p := replanPolicy("p", policy.Trigger{
		Kind:      policy.TriggerOnNodeComplete,
		Condition: &policy.Condition{DSL: "facets.planKnobs.hookIntensity < 0.6"},
	})

	snap := snapshot(t, `{"facets": {"planKnobs": {"value": {"hookIntensity": 0.4}}}}`)
	if New(nil).Evaluate(p, snap) {
		t.Error("a DSL condition that was never compiled must not match")
	}
}

func TestEvaluateRunStartEffect(t *testing.T) {
	onStart := &policy.RuntimePolicy{
		ID:      "budget-gate",
		Enabled: true,
		Trigger: policy.Trigger{
			Kind:      policy.TriggerOnStart,
			Condition: compiled(t, "facets.budget.remaining < 100"),
		},
		Action: policy.Action{Kind: policy.ActionHITL, Rationale: "budget nearly exhausted"},
	}
	nodeScoped := replanPolicy("node-scoped", policy.Trigger{Kind: policy.TriggerOnNodeComplete})

	snap := snapshot(t, `{"facets": {"budget": {"value": {"remaining": 40}}}}`)
	effect := New(nil).EvaluateRunStartEffect(normalized(nodeScoped, onStart), snap)

	if effect == nil {
		t.Fatal("expected an effect")
	}
	if effect.PolicyID != "budget-gate" {
		t.Errorf("run start must only consider onStart policies, got %q", effect.PolicyID)
	}
	if effect.Phase != PhaseStartup {
		t.Errorf("phase = %q, want %q", effect.Phase, PhaseStartup)
	}
	if effect.Kind != policy.ActionHITL {
		t.Errorf("kind = %q", effect.Kind)
	}
}

func TestEffectCarriesActionPayload(t *testing.T) {
	p := &policy.RuntimePolicy{
		ID:      "jump",
		Enabled: true,
		Trigger: policy.Trigger{Kind: policy.TriggerOnValidationFail},
		Action:  policy.Action{Kind: policy.ActionGoto, Next: "revise-draft"},
	}

	event := Event{
		Kind: policy.TriggerOnValidationFail,
		Node: &NodeDescriptor{ID: "draft-3"},
	}
	effect := New(nil).ResolveEffect(normalized(p), event, Snapshot{})

	if effect == nil {
		t.Fatal("expected an effect")
	}
	if effect.Next != "revise-draft" {
		t.Errorf("next = %q", effect.Next)
	}
	if effect.Phase != PhaseValidation {
		t.Errorf("phase = %q", effect.Phase)
	}
	if effect.NodeID != "draft-3" {
		t.Errorf("node id = %q", effect.NodeID)
	}
}

func TestResolveEffectDeterministic(t *testing.T) {
	policies := normalized(
		replanPolicy("a", policy.Trigger{
			Kind:      policy.TriggerOnNodeComplete,
			Condition: compiled(t, "facets.planKnobs.hookIntensity < 0.6"),
		}),
		replanPolicy("b", policy.Trigger{Kind: policy.TriggerOnNodeComplete}),
	)

	snap := snapshot(t, `{"facets": {"planKnobs": {"value": {"hookIntensity": 0.4}}}}`)
	event := Event{Kind: policy.TriggerOnNodeComplete, Node: &NodeDescriptor{ID: "n1"}}

	e := New(nil)
	first := e.ResolveEffect(policies, event, snap)
	for i := 0; i < 10; i++ {
		again := e.ResolveEffect(policies, event, snap)
		if again == nil || again.PolicyID != first.PolicyID {
			t.Fatalf("resolution must be deterministic, got %+v then %+v", first, again)
		}
	}
}
