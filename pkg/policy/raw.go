package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// RawTaskPolicies is the parse boundary for a policy declaration as it
// arrives in a run envelope. It accepts both the canonical shape and the
// legacy shorthand fields; legacy fields are typed loosely on purpose so a
// wrong-typed value reaches the normalizer, which skips it with a note
// instead of failing the decode.
type RawTaskPolicies struct {
	Planner *RawPlannerPolicy  `yaml:"planner" json:"planner,omitempty"`
	Runtime []RawRuntimePolicy `yaml:"runtime" json:"runtime,omitempty"`

	// Legacy shorthand, migrated by the normalizer.
	VariantCount       any `yaml:"variantCount" json:"variantCount,omitempty"`
	ReplanAfter        any `yaml:"replanAfter" json:"replanAfter,omitempty"`
	TriggerReplanAfter any `yaml:"triggerReplanAfter" json:"triggerReplanAfter,omitempty"`
}

// RawPlannerPolicy mirrors the planner sub-policy as authored.
type RawPlannerPolicy struct {
	Selection *RawSelectionPolicy `yaml:"selection" json:"selection,omitempty"`
	Objective string              `yaml:"objective" json:"objective,omitempty"`
	Topology  *RawTopologyHints   `yaml:"topology" json:"topology,omitempty"`
}

// RawSelectionPolicy mirrors planner.selection as authored.
type RawSelectionPolicy struct {
	Require []string `yaml:"require" json:"require,omitempty"`
	Prefer  []string `yaml:"prefer" json:"prefer,omitempty"`
}

// RawTopologyHints mirrors planner.topology as authored.
type RawTopologyHints struct {
	VariantCount int `yaml:"variantCount" json:"variantCount,omitempty"`
}

// RawRuntimePolicy mirrors one runtime policy declaration as authored.
type RawRuntimePolicy struct {
	ID      string     `yaml:"id" json:"id"`
	Enabled *bool      `yaml:"enabled" json:"enabled,omitempty"` // pointer to distinguish unset from false
	Trigger RawTrigger `yaml:"trigger" json:"trigger"`
	Action  RawAction  `yaml:"action" json:"action"`
}

// RawTrigger mirrors a trigger declaration as authored.
type RawTrigger struct {
	Kind      string         `yaml:"kind" json:"kind"`
	Selector  *RawSelector   `yaml:"selector" json:"selector,omitempty"`
	Condition map[string]any `yaml:"condition" json:"condition,omitempty"`
	Ms        int64          `yaml:"ms" json:"ms,omitempty"`
}

// RawSelector mirrors a trigger selector as authored.
type RawSelector struct {
	CapabilityID string `yaml:"capabilityId" json:"capabilityId,omitempty"`
	Kind         string `yaml:"kind" json:"kind,omitempty"`
	Stage        string `yaml:"stage" json:"stage,omitempty"`
}

// RawAction mirrors an action declaration as authored.
type RawAction struct {
	Kind      string         `yaml:"kind" json:"kind"`
	Rationale string         `yaml:"rationale" json:"rationale,omitempty"`
	Next      string         `yaml:"next" json:"next,omitempty"`
	Message   string         `yaml:"message" json:"message,omitempty"`
	Event     string         `yaml:"event" json:"event,omitempty"`
	Payload   map[string]any `yaml:"payload" json:"payload,omitempty"`
	Reason    string         `yaml:"reason" json:"reason,omitempty"`
}

// DecodeYAML decodes a raw policy declaration from YAML bytes.
func DecodeYAML(data []byte) (*RawTaskPolicies, error) {
	var raw RawTaskPolicies
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(false)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &RawTaskPolicies{}, nil
		}
		return nil, &DeclError{
			Type:    ErrorTypeSyntax,
			Message: fmt.Sprintf("cannot decode policy declaration: %v", err),
		}
	}
	return &raw, nil
}

// DecodeJSON decodes a raw policy declaration from JSON bytes.
func DecodeJSON(data []byte) (*RawTaskPolicies, error) {
	var raw RawTaskPolicies
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DeclError{
			Type:    ErrorTypeSyntax,
			Message: fmt.Sprintf("cannot decode policy declaration: %v", err),
		}
	}
	return &raw, nil
}

// HasLegacyFields returns true when any legacy shorthand field is present.
func (r *RawTaskPolicies) HasLegacyFields() bool {
	return r.VariantCount != nil || r.ReplanAfter != nil || r.TriggerReplanAfter != nil
}
