package normalize

import (
	"strings"
	"testing"

	"draftline-hq/meridian/pkg/policy"
)

func decode(t *testing.T, yaml string) *policy.RawTaskPolicies {
	t.Helper()
	raw, err := policy.DecodeYAML([]byte(yaml))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return raw
}

func TestNormalizeCanonicalPassThrough(t *testing.T) {
	raw := decode(t, `
runtime:
  - id: low-hook-replan
    trigger:
      kind: onNodeComplete
      selector:
        capabilityId: gen.hook.v2
      condition:
        dsl: facets.planKnobs.hookIntensity < 0.6
    action:
      kind: replan
      rationale: hook intensity below target
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(normalized.Runtime) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(normalized.Runtime))
	}
	if len(normalized.LegacyNotes) != 0 {
		t.Errorf("canonical declaration must produce no legacy notes, got %v", normalized.LegacyNotes)
	}

	p := normalized.Runtime[0]
	if !p.Enabled {
		t.Error("enabled must default to true")
	}

	cond := p.Trigger.Condition
	if cond.Compiled == nil {
		t.Fatal("DSL condition must be compiled during normalization")
	}
	if len(cond.Compiled.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", cond.Compiled.Warnings)
	}
	if cond.Logic() == nil {
		t.Error("compiled condition must expose a logic tree")
	}
}

func TestNormalizeLegacyMigration(t *testing.T) {
	raw := decode(t, `
variantCount: 3
replanAfter: [qa]
triggerReplanAfter:
  - capabilityId: render.video.v1
    reason: flaky renders
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(normalized.Runtime) != 2 {
		t.Fatalf("expected exactly 2 derived policies, got %d", len(normalized.Runtime))
	}

	planner := normalized.Canonical.Planner
	if planner == nil || planner.Topology == nil || planner.Topology.VariantCount != 3 {
		t.Errorf("variantCount not folded into planner topology: %+v", planner)
	}

	// replanAfter entry "qa" has no dot, so it selects by stage.
	fromReplan := normalized.Runtime[0]
	if fromReplan.ID != "legacy-replan-after-1" {
		t.Errorf("id = %q", fromReplan.ID)
	}
	if fromReplan.Trigger.Kind != policy.TriggerOnNodeComplete {
		t.Errorf("trigger = %q", fromReplan.Trigger.Kind)
	}
	if fromReplan.Trigger.Selector.Stage != "qa" || fromReplan.Trigger.Selector.CapabilityID != "" {
		t.Errorf("selector = %+v, want stage qa", fromReplan.Trigger.Selector)
	}
	if fromReplan.Action.Kind != policy.ActionReplan {
		t.Errorf("action = %q", fromReplan.Action.Kind)
	}

	fromTrigger := normalized.Runtime[1]
	if fromTrigger.ID != "legacy-trigger-replan-1" {
		t.Errorf("id = %q", fromTrigger.ID)
	}
	if fromTrigger.Trigger.Selector.CapabilityID != "render.video.v1" {
		t.Errorf("selector = %+v", fromTrigger.Trigger.Selector)
	}
	if fromTrigger.Action.Rationale != "flaky renders" {
		t.Errorf("rationale = %q", fromTrigger.Action.Rationale)
	}

	joined := strings.Join(normalized.LegacyNotes, "\n")
	if !strings.Contains(joined, "legacy replan directives") {
		t.Errorf("notes must mention legacy replan directives, got %v", normalized.LegacyNotes)
	}
	if !strings.Contains(joined, "variantCount 3") {
		t.Errorf("notes must record the variantCount migration, got %v", normalized.LegacyNotes)
	}
}

func TestNormalizeDottedReplanAfterSelectsCapability(t *testing.T) {
	raw := decode(t, `
replanAfter: [qa.agent]
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	sel := normalized.Runtime[0].Trigger.Selector
	if sel.CapabilityID != "qa.agent" || sel.Stage != "" {
		t.Errorf("dotted entry must select by capability id, got %+v", sel)
	}
}

func TestNormalizeLegacyAppendedAfterAuthored(t *testing.T) {
	raw := decode(t, `
runtime:
  - id: authored-first
    trigger:
      kind: onNodeComplete
    action:
      kind: replan
replanAfter: [qa]
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(normalized.Runtime) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(normalized.Runtime))
	}
	if normalized.Runtime[0].ID != "authored-first" {
		t.Errorf("authored policy must come first, got %q", normalized.Runtime[0].ID)
	}
	if normalized.Runtime[1].ID != "legacy-replan-after-1" {
		t.Errorf("legacy policy must be appended last, got %q", normalized.Runtime[1].ID)
	}
}

func TestNormalizeMalformedLegacySkippedWithNote(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "replanAfter not a list",
			yaml: "replanAfter: qa",
			want: "malformed legacy replanAfter",
		},
		{
			name: "replanAfter entry not a string",
			yaml: "replanAfter: [42]",
			want: "malformed legacy replanAfter entry at index 0",
		},
		{
			name: "variantCount not a number",
			yaml: "variantCount: three",
			want: "malformed legacy variantCount",
		},
		{
			name: "triggerReplanAfter entry without capabilityId",
			yaml: "triggerReplanAfter: [{reason: why}]",
			want: "without capabilityId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := New(nil).Normalize(decode(t, tt.yaml))
			if err != nil {
				t.Fatalf("malformed legacy fields must not fail normalization: %v", err)
			}
			if len(normalized.Runtime) != 0 {
				t.Errorf("skipped entries must not produce policies, got %d", len(normalized.Runtime))
			}

			joined := strings.Join(normalized.LegacyNotes, "\n")
			if !strings.Contains(joined, tt.want) {
				t.Errorf("notes %v do not mention %q", normalized.LegacyNotes, tt.want)
			}
		})
	}
}

func TestNormalizeStructuralErrorRejects(t *testing.T) {
	raw := decode(t, `
runtime:
  - id: bad-goto
    trigger:
      kind: onValidationFail
    action:
      kind: goto
`)

	normalized, err := New(nil).Normalize(raw)
	if err == nil {
		t.Fatal("expected a declaration error")
	}
	if normalized != nil {
		t.Error("rejected declarations must return nil")
	}
	if !strings.Contains(err.Error(), "goto action requires a next node id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalizeDegradedConditionIsNotFatal(t *testing.T) {
	raw := decode(t, `
runtime:
  - id: broken-condition
    trigger:
      kind: onNodeComplete
      condition:
        dsl: "facets.a.x < 1 && facets.b.y > 2"
    action:
      kind: replan
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("degraded conditions must not fail normalization: %v", err)
	}

	cond := normalized.Runtime[0].Trigger.Condition
	if cond.Compiled == nil || len(cond.Compiled.Warnings) != 1 {
		t.Fatalf("expected one compile warning, got %+v", cond.Compiled)
	}
}

func TestNormalizePlannerDedupe(t *testing.T) {
	raw := decode(t, `
planner:
  selection:
    require: [gen.hook.v2, gen.hook.v2, qa.agent]
    prefer: [qa.agent, qa.agent]
`)

	normalized, err := New(nil).Normalize(raw)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	sel := normalized.Canonical.Planner.Selection
	if len(sel.Require) != 2 || sel.Require[0] != "gen.hook.v2" || sel.Require[1] != "qa.agent" {
		t.Errorf("require = %v, want order-preserving dedupe", sel.Require)
	}
	if len(sel.Prefer) != 1 {
		t.Errorf("prefer = %v", sel.Prefer)
	}
}

func TestNormalizeNilInput(t *testing.T) {
	normalized, err := New(nil).Normalize(nil)
	if err != nil {
		t.Fatalf("nil input must normalize to an empty declaration: %v", err)
	}
	if len(normalized.Runtime) != 0 || len(normalized.LegacyNotes) != 0 {
		t.Errorf("unexpected result: %+v", normalized)
	}
}
