package policy

import (
	"testing"
)

func TestDecodeYAML(t *testing.T) {
	data := []byte(`
planner:
  selection:
    require: [gen.hook.v2]
    prefer: [gen.hook.v2, gen.hook.v1]
  objective: maximize-retention
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
  - id: qa-timeout
    enabled: false
    trigger:
      kind: onTimeout
      ms: 30000
    action:
      kind: fail
      message: qa stage timed out
variantCount: 3
replanAfter: [qa]
`)

	raw, err := DecodeYAML(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if raw.Planner == nil || raw.Planner.Objective != "maximize-retention" {
		t.Errorf("planner not decoded: %+v", raw.Planner)
	}
	if len(raw.Runtime) != 2 {
		t.Fatalf("expected 2 runtime policies, got %d", len(raw.Runtime))
	}

	first := raw.Runtime[0]
	if first.ID != "low-hook-replan" {
		t.Errorf("id = %q", first.ID)
	}
	if first.Enabled != nil {
		t.Error("unset enabled must decode as nil, not false")
	}
	if first.Trigger.Selector == nil || first.Trigger.Selector.CapabilityID != "gen.hook.v2" {
		t.Errorf("selector not decoded: %+v", first.Trigger.Selector)
	}
	if first.Trigger.Condition["dsl"] != "facets.planKnobs.hookIntensity < 0.6" {
		t.Errorf("condition not decoded: %+v", first.Trigger.Condition)
	}

	second := raw.Runtime[1]
	if second.Enabled == nil || *second.Enabled {
		t.Error("explicit enabled: false must decode as a false pointer")
	}
	if second.Trigger.Ms != 30000 {
		t.Errorf("ms = %d", second.Trigger.Ms)
	}

	if !raw.HasLegacyFields() {
		t.Error("legacy fields present but not detected")
	}
}

func TestDecodeYAMLEmpty(t *testing.T) {
	raw, err := DecodeYAML(nil)
	if err != nil {
		t.Fatalf("empty input must decode to an empty declaration, got %v", err)
	}
	if raw == nil || raw.HasLegacyFields() || len(raw.Runtime) != 0 {
		t.Errorf("unexpected result: %+v", raw)
	}
}

func TestDecodeYAMLSyntaxError(t *testing.T) {
	_, err := DecodeYAML([]byte("runtime: [unclosed"))
	if err == nil {
		t.Fatal("expected a syntax error")
	}

	declErr, ok := err.(*DeclError)
	if !ok {
		t.Fatalf("expected *DeclError, got %T", err)
	}
	if declErr.Type != ErrorTypeSyntax {
		t.Errorf("type = %q, want syntax", declErr.Type)
	}
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
		"runtime": [
			{
				"id": "manual-pause",
				"trigger": {"kind": "manual"},
				"action": {"kind": "pause", "reason": "operator request"}
			}
		],
		"triggerReplanAfter": [{"capabilityId": "render.video.v1", "reason": "flaky renders"}]
	}`)

	raw, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(raw.Runtime) != 1 || raw.Runtime[0].Action.Reason != "operator request" {
		t.Errorf("unexpected runtime: %+v", raw.Runtime)
	}
	if !raw.HasLegacyFields() {
		t.Error("triggerReplanAfter must register as a legacy field")
	}
}
